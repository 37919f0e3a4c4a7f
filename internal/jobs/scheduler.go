// Package jobs управляет фоновыми задачами обслуживания (cron).
// Внимание: сам движок XP таймеров не имеет — окна кулдаунов и дневных
// лимитов всегда считаются от строк журнала в момент решения.
// Здесь только хозяйственные задачи: чистка гостевых действий и
// прогрев снимка таблицы лидеров.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"geoblog.ru/xp-engine/internal/config"
	"geoblog.ru/xp-engine/internal/features/guest"
	"geoblog.ru/xp-engine/internal/features/xp"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron         *cron.Cron
	guestService *guest.Service
	xpService    *xp.Service
	cfg          *config.Config
}

// NewScheduler создаёт планировщик задач в часовом поясе из конфига.
func NewScheduler(guestService *guest.Service, xpService *xp.Service, cfg *config.Config) *Scheduler {
	loc, err := time.LoadLocation(cfg.AppTimezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC", cfg.AppTimezone)
		loc = time.UTC
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		guestService: guestService,
		xpService:    xpService,
		cfg:          cfg,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ежесуточная чистка терминальных гостевых действий в 03:30
	s.cron.AddFunc("30 3 * * *", func() {
		log.Info("[CRON] Чистка старых гостевых действий")
		if err := s.guestService.PurgeOld(ctx, s.cfg.GuestRetentionDays); err != nil {
			log.WithError(err).Error("[CRON] Ошибка чистки гостевых действий")
		}
	})

	// Прогрев снимка таблицы лидеров каждый час
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Обновление таблицы лидеров")
		if err := s.xpService.RefreshLeaderboard(ctx, s.cfg.LeaderboardSize); err != nil {
			log.WithError(err).Error("[CRON] Ошибка обновления таблицы лидеров")
		}
	})

	s.cron.Start()
	log.Infof("Планировщик задач запущен (%s)", s.cfg.AppTimezone)
}

// Stop останавливает планировщик и ждёт завершения выполняющихся задач.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	log.Info("Планировщик задач остановлен")
}
