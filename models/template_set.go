package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemplateSet 一个产品类型（例如“救生员草帽”）下的全部机位模板。
// 整个集合作为一份带版本号的 JSON 文档存放在 KV 存储中。
type TemplateSet struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Icon      string          `json:"icon"`
	SortOrder int             `json:"sortOrder"`
	Templates []ImageTemplate `json:"templates"`
	Presets   []PromptPreset  `json:"presets,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ImageTemplate 产品的一个机位/视角。
type ImageTemplate struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	TemplateImageURL string    `json:"templateImageUrl"` // 允许为空，表示尚未上传底图
	BasePrompt       string    `json:"basePrompt"`
	SortOrder        int       `json:"sortOrder"`
	IsActive         bool      `json:"isActive"` // JSON 中缺失按 true 处理，见 UnmarshalJSON
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UnmarshalJSON isActive 缺失时按启用处理：
// 旧数据和只在停用时才携带该字段的客户端不能被误判为停用。
func (t *ImageTemplate) UnmarshalJSON(data []byte) error {
	type plain ImageTemplate
	aux := struct {
		IsActive *bool `json:"isActive"`
		*plain
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.IsActive = aux.IsActive == nil || *aux.IsActive
	return nil
}

// PromptPreset 可复用的提示词补充片段。
type PromptPreset struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// HasUsableImage 判断模板底图是否可用于生成。
// 空串和浏览器本地预览引用（blob:/data:）都不算可用。
func (t ImageTemplate) HasUsableImage() bool {
	u := strings.TrimSpace(t.TemplateImageURL)
	if u == "" {
		return false
	}
	if strings.HasPrefix(u, "blob:") || strings.HasPrefix(u, "data:") {
		return false
	}
	return true
}

// EligibleTemplates 返回参与生成的模板：isActive 且底图可用。
func (s TemplateSet) EligibleTemplates() []ImageTemplate {
	var out []ImageTemplate
	for _, t := range s.Templates {
		if t.IsActive && t.HasUsableImage() {
			out = append(out, t)
		}
	}
	return out
}

// DefaultTemplateSets 首次访问时写入的种子数据。
// 仅在存储从未被写入过时使用，用户显式清空的集合不会被重新播种。
func DefaultTemplateSets() []TemplateSet {
	now := time.Now()
	return []TemplateSet{
		{
			ID:        uuid.NewString(),
			Name:      "Lifeguard Straw Hat",
			Icon:      "👒",
			SortOrder: 1,
			Templates: []ImageTemplate{
				{
					ID:         uuid.NewString(),
					Name:       "Front",
					BasePrompt: "Apply the pattern to the hat band, keep the straw texture visible",
					SortOrder:  1,
					IsActive:   true,
					CreatedAt:  now,
					UpdatedAt:  now,
				},
				{
					ID:         uuid.NewString(),
					Name:       "Side",
					BasePrompt: "Apply the pattern to the hat band, three-quarter view",
					SortOrder:  2,
					IsActive:   true,
					CreatedAt:  now,
					UpdatedAt:  now,
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
