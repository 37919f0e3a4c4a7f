// Package xp — catalog.go содержит неизменяемый каталог источников XP.
// Политика как код: правила версионируются вместе с деплоем и их
// нельзя изменить во время работы (нет ни одной операции мутации).
package xp

import (
	"fmt"
	"time"

	"geoblog.ru/xp-engine/internal/common"
)

// Catalog — реестр правил начисления по источникам.
// Создаётся один раз при старте процесса, далее только читается.
type Catalog struct {
	sources map[string]SourceConfig
}

// NewCatalog строит каталог с правилами платформы.
//
// Таблица правил:
//
//	post_created      50 XP, модерация, кулдаун 60с,  лимит 20/сутки
//	post_with_photo   25 XP, модерация
//	marker_created    30 XP, модерация, кулдаун 30с,  лимит 50/сутки
//	route_created    100 XP, модерация, кулдаун 300с, лимит 5/сутки
//	event_created     40 XP, модерация, кулдаун 120с, лимит 10/сутки
//	content_approved  20 XP, без модерации
func NewCatalog() *Catalog {
	configs := []SourceConfig{
		{
			ID:                 SourcePostCreated,
			BaseAmount:         50,
			Category:           "content",
			RequiresModeration: true,
			Cooldown:           60 * time.Second,
			DailyLimit:         20,
		},
		{
			ID:                 SourcePostWithPhoto,
			BaseAmount:         25,
			Category:           "content",
			RequiresModeration: true,
		},
		{
			ID:                 SourceMarkerCreated,
			BaseAmount:         30,
			Category:           "content",
			RequiresModeration: true,
			Cooldown:           30 * time.Second,
			DailyLimit:         50,
		},
		{
			ID:                 SourceRouteCreated,
			BaseAmount:         100,
			Category:           "content",
			RequiresModeration: true,
			Cooldown:           300 * time.Second,
			DailyLimit:         5,
		},
		{
			ID:                 SourceEventCreated,
			BaseAmount:         40,
			Category:           "content",
			RequiresModeration: true,
			Cooldown:           120 * time.Second,
			DailyLimit:         10,
		},
		{
			ID:                 SourceContentApproved,
			BaseAmount:         20,
			Category:           "moderation",
			RequiresModeration: false,
		},
	}

	m := make(map[string]SourceConfig, len(configs))
	for _, c := range configs {
		m[c.ID] = c
	}
	return &Catalog{sources: m}
}

// Get возвращает правило для источника.
// Неизвестный источник — дефект вызывающего кода.
func (c *Catalog) Get(source string) (SourceConfig, error) {
	cfg, ok := c.sources[source]
	if !ok {
		return SourceConfig{}, fmt.Errorf("%w: %q", common.ErrUnknownSource, source)
	}
	return cfg, nil
}

// Sources возвращает список всех зарегистрированных источников.
// Используется админ-ручкой для справки.
func (c *Catalog) Sources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.sources))
	for _, cfg := range c.sources {
		out = append(out, cfg)
	}
	return out
}
