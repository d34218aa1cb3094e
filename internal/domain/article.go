package domain

// Article AIMS 商品模型（厂家云侧的标签数据载体）
// Data 的键由租户的 article format 定义（如 ITEM_NAME、OCCUPANT 等自定义字段）
type Article struct {
	ArticleID   string            `json:"articleId"`
	ArticleName string            `json:"articleName,omitempty"`
	NFCURL      string            `json:"nfcUrl,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}
