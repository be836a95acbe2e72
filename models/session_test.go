package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSessionStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"all completed", []string{ImageStatusCompleted, ImageStatusCompleted}, SessionStatusCompleted},
		{"all failed", []string{ImageStatusFailed, ImageStatusFailed}, SessionStatusFailed},
		{"mixed", []string{ImageStatusCompleted, ImageStatusFailed, ImageStatusCompleted}, SessionStatusInProgress},
		{"still pending", []string{ImageStatusCompleted, ImageStatusPending}, SessionStatusInProgress},
		{"empty", nil, SessionStatusInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var images []GeneratedImage
			for _, s := range tt.statuses {
				images = append(images, GeneratedImage{Status: s})
			}
			assert.Equal(t, tt.want, DeriveSessionStatus(images))
		})
	}
}

func TestOutputSettingsConsistentMode(t *testing.T) {
	manual := OutputSettings{Mode: OutputModeManual, Temperature: 0.7, Seed: 7}
	assert.Equal(t, 0.7, manual.EffectiveTemperature())
	assert.Equal(t, 7, manual.EffectiveSeed())

	consistent := OutputSettings{Mode: OutputModeConsistent, Temperature: 0.7, Seed: 7}
	assert.Equal(t, ConsistentTemperature, consistent.EffectiveTemperature())
	assert.Equal(t, ConsistentSeed, consistent.EffectiveSeed())
}

func TestGeneratedImageListScanRoundTrip(t *testing.T) {
	list := GeneratedImageList{
		{ID: "img-1", Status: ImageStatusCompleted, APICost: 0.04, Refinements: []Refinement{{Prompt: "brighter"}}},
		{ID: "img-2", Status: ImageStatusFailed, ErrorMessage: "timeout"},
	}
	val, err := list.Value()
	require.NoError(t, err)

	var out GeneratedImageList
	require.NoError(t, out.Scan(val.([]byte)))
	require.Len(t, out, 2)
	assert.Equal(t, "img-1", out[0].ID)
	assert.Equal(t, 0.04, out[0].APICost)
	assert.Len(t, out[0].Refinements, 1)
	assert.Equal(t, "timeout", out[1].ErrorMessage)
}

func TestTotalCost(t *testing.T) {
	images := []GeneratedImage{{APICost: 0.04}, {APICost: 0.08}, {}}
	assert.InDelta(t, 0.12, TotalCost(images), 1e-9)
}

func TestHasUsableImage(t *testing.T) {
	assert.False(t, ImageTemplate{TemplateImageURL: ""}.HasUsableImage())
	assert.False(t, ImageTemplate{TemplateImageURL: "   "}.HasUsableImage())
	assert.False(t, ImageTemplate{TemplateImageURL: "blob:http://localhost/abc"}.HasUsableImage())
	assert.False(t, ImageTemplate{TemplateImageURL: "data:image/png;base64,AAAA"}.HasUsableImage())
	assert.True(t, ImageTemplate{TemplateImageURL: "https://cdn.example.com/t.png"}.HasUsableImage())
}

func TestImageTemplateActiveDefaultsTrue(t *testing.T) {
	// 历史数据里可能没有 isActive 字段，缺失不等于停用
	var tpl ImageTemplate
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t-1","name":"Front","templateImageUrl":"https://cdn/front.png"}`), &tpl))
	assert.True(t, tpl.IsActive)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"t-2","isActive":false,"templateImageUrl":"https://cdn/x.png"}`), &tpl))
	assert.False(t, tpl.IsActive)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"t-3","isActive":true}`), &tpl))
	assert.True(t, tpl.IsActive)

	var set TemplateSet
	raw := `{"id":"s-1","templates":[{"id":"t-1","templateImageUrl":"https://cdn/front.png"}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &set))
	assert.Len(t, set.EligibleTemplates(), 1, "缺失 isActive 的模板参与生成")
}

func TestTemplateSetJSONRoundTrip(t *testing.T) {
	sets, _ := json.Marshal(DefaultTemplateSets())
	var out []TemplateSet
	require.NoError(t, json.Unmarshal(sets, &out))
	require.Len(t, out, 1)
	require.Len(t, out[0].Templates, 2)
	assert.Equal(t, 1, out[0].Templates[0].SortOrder)
	assert.Equal(t, 2, out[0].Templates[1].SortOrder)
	assert.True(t, out[0].Templates[0].IsActive)
}
