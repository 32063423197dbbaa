package models

// Game 游戏目录表
type Game struct {
	BaseModel
	PublisherID string `gorm:"size:255" json:"publisherId"`
	Name        string `gorm:"size:255;index" json:"name"`
	Platform    string `gorm:"size:32;index" json:"platform"` // ios, android
	StoreID     string `gorm:"size:255" json:"storeId"`
	BundleID    string `gorm:"size:255" json:"bundleId"`
	AppVersion  string `gorm:"size:64" json:"appVersion"`
	IsPublished bool   `gorm:"not null" json:"isPublished"`
}

// TableName 表名
func (Game) TableName() string {
	return "games"
}

// GameInput 创建/更新请求体，未提交的字段为nil
type GameInput struct {
	PublisherID *string `json:"publisherId"`
	Name        *string `json:"name"`
	Platform    *string `json:"platform"`
	StoreID     *string `json:"storeId"`
	BundleID    *string `json:"bundleId"`
	AppVersion  *string `json:"appVersion"`
	IsPublished *bool   `json:"isPublished"`
}

// Apply 只把提交了的字段写到game上
func (in *GameInput) Apply(game *Game) {
	if in.PublisherID != nil {
		game.PublisherID = *in.PublisherID
	}
	if in.Name != nil {
		game.Name = *in.Name
	}
	if in.Platform != nil {
		game.Platform = *in.Platform
	}
	if in.StoreID != nil {
		game.StoreID = *in.StoreID
	}
	if in.BundleID != nil {
		game.BundleID = *in.BundleID
	}
	if in.AppVersion != nil {
		game.AppVersion = *in.AppVersion
	}
	if in.IsPublished != nil {
		game.IsPublished = *in.IsPublished
	}
}

// SearchFilter 搜索条件，空字符串表示不限制
type SearchFilter struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
}
