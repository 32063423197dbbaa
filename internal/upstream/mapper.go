package upstream

import (
	"github.com/tidwall/gjson"
	"github.com/wfunc/game-catalog/internal/models"
)

// 上游字段名
const (
	fieldPublisherID = "publisher_id"
	fieldName        = "name"
	fieldOS          = "os"
	fieldID          = "id"
	fieldBundleID    = "bundle_id"
	fieldVersion     = "version"
)

// MapEntries 合并各数据源条目并映射为Game，isPublished固定为true。
// 非对象条目被跳过。
func MapEntries(batches [][]gjson.Result) []*models.Game {
	var merged []gjson.Result
	for _, batch := range batches {
		merged = append(merged, batch...)
	}
	merged = Flatten(merged)

	games := make([]*models.Game, 0, len(merged))
	for _, entry := range merged {
		if !entry.IsObject() {
			continue
		}
		games = append(games, MapEntry(entry))
	}
	return games
}

// MapEntry 按固定字段表映射单条记录，数字值按原样转为字符串
func MapEntry(entry gjson.Result) *models.Game {
	return &models.Game{
		PublisherID: entry.Get(fieldPublisherID).String(),
		Name:        entry.Get(fieldName).String(),
		Platform:    entry.Get(fieldOS).String(),
		StoreID:     entry.Get(fieldID).String(),
		BundleID:    entry.Get(fieldBundleID).String(),
		AppVersion:  entry.Get(fieldVersion).String(),
		IsPublished: true,
	}
}
