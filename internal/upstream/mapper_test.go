package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const androidFixture = `[[
  {"publisher_id":"pub-1","name":"Candy Crush","os":"android","id":12345678901,"bundle_id":"com.king.candy","version":"1.2.3","rank":1},
  {"publisher_id":"pub-2","name":"Subway Surfers","os":"android","id":"sub-9","bundle_id":"com.kiloo.subway","version":"2.0"}
]]`

const iosFixture = `[[
  {"publisher_id":7,"name":"Clash","os":"ios","id":529479190,"bundle_id":"com.supercell.clash","version":null}
]]`

func mustParse(t *testing.T, body string) []gjson.Result {
	entries, err := ParseList([]byte(body), 100)
	require.NoError(t, err)
	return entries
}

func TestMapEntries(t *testing.T) {
	games := MapEntries([][]gjson.Result{
		mustParse(t, androidFixture),
		mustParse(t, iosFixture),
	})
	require.Len(t, games, 3)

	first := games[0]
	assert.Equal(t, "pub-1", first.PublisherID)
	assert.Equal(t, "Candy Crush", first.Name)
	assert.Equal(t, "android", first.Platform)
	assert.Equal(t, "12345678901", first.StoreID)
	assert.Equal(t, "com.king.candy", first.BundleID)
	assert.Equal(t, "1.2.3", first.AppVersion)
	assert.True(t, first.IsPublished)
	assert.Zero(t, first.ID)

	ios := games[2]
	assert.Equal(t, "7", ios.PublisherID)
	assert.Equal(t, "529479190", ios.StoreID)
	assert.Equal(t, "", ios.AppVersion)
	assert.True(t, ios.IsPublished)
}

func TestMapEntriesSkipsNonObjects(t *testing.T) {
	batch := gjson.Parse(`[{"name":"a"},null,"junk",[{"name":"b"}]]`).Array()

	games := MapEntries([][]gjson.Result{batch})
	require.Len(t, games, 2)
	assert.Equal(t, "a", games[0].Name)
	assert.Equal(t, "b", games[1].Name)
}

func TestMapEntriesEmpty(t *testing.T) {
	games := MapEntries(nil)
	assert.NotNil(t, games)
	assert.Empty(t, games)
}
