// Package app wires config into stores, queues and services. Both the API
// server and the standalone worker start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mindwellAPI/config"
	"mindwellAPI/internal/ai"
	"mindwellAPI/internal/auth"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/notification"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/realtime"
	"mindwellAPI/internal/realtime/bus"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/store/memory"
	"mindwellAPI/internal/store/postgres"
	"mindwellAPI/internal/workers"
	"mindwellAPI/services"
)

type App struct {
	Config config.Config
	Log    *logger.Logger
	Clock  services.Clock

	Store  store.Store
	Queue  queue.Queue
	Redis  *redis.Client
	Bus    bus.Bus
	Hub    *realtime.Hub
	Tokens *auth.TokenManager

	Users         *services.UserService
	Exercises     *services.ExerciseService
	Achievements  *services.AchievementService
	Progress      *services.ProgressService
	Mood          *services.MoodService
	Breathing     *services.BreathingService
	Chat          *services.ChatService
	Notifications *services.NotificationService
	Maintenance   *services.MaintenanceService
}

func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (store.Store, error) {
	if cfg.Store == "memory" {
		st := memory.New()
		if err := store.Seed(ctx, st); err != nil {
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
		log.Warn("using in-memory store, data is lost on restart")
		return st, nil
	}

	st, err := postgres.Connect(ctx, cfg.DBURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	if err := store.Seed(ctx, st); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}
	log.Info("connected to postgres")
	return st, nil
}

func openRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func openQueue(cfg config.Config, rdb *redis.Client) queue.Queue {
	opts := queue.Options{MaxAttempts: cfg.QueueMaxAttempts}
	switch cfg.QueueBackend {
	case "redis":
		return queue.NewRedis(rdb, "mindwell:tasks", opts)
	case "kafka":
		return queue.NewKafka(queue.KafkaConfig{Brokers: cfg.Brokers()}, opts)
	default:
		return queue.NewMemory(opts)
	}
}

// New connects every backend named in cfg. Optional providers (FCM,
// SendGrid, OpenAI) that are not configured are logged and skipped.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Log:    log,
		Clock:  services.NewClock(cfg.Location()),
		Hub:    realtime.NewHub(log),
		Tokens: auth.NewTokenManager(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
	}

	var err error
	if a.Store, err = openStore(ctx, cfg, log); err != nil {
		return nil, err
	}
	if a.Redis, err = openRedis(ctx, cfg.RedisAddr); err != nil {
		a.Close()
		return nil, err
	}
	a.Queue = openQueue(cfg, a.Redis)

	var revoked auth.TokenCache = auth.NewMemoryTokenCache()
	if a.Redis != nil {
		revoked = auth.NewRedisTokenCache(a.Redis)
		if a.Bus, err = bus.NewRedisBus(a.Redis, "mindwell:realtime", log); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		a.Bus = bus.NewLocalBus()
	}

	dispatcher := services.NewNotificationDispatcher(a.Store, log)
	if fcm, err := notification.NewFCMService(ctx, cfg.FCMCredentialsFile, log); err != nil {
		log.Warn("push notifications disabled", "error", err)
	} else {
		dispatcher.SetPushProvider(fcm)
		log.Info("FCM push provider initialized")
	}
	if cfg.SendGridKey != "" {
		dispatcher.SetEmailSender(notification.NewSendGridSender(cfg.SendGridKey, cfg.EmailFrom))
	} else {
		log.Warn("SENDGRID_API_KEY not set, emails are logged and dropped")
	}

	var assistant ai.Completer = ai.Unavailable{}
	if cfg.OpenAIKey != "" {
		assistant = ai.NewOpenAI(ai.Config{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel})
	} else {
		log.Warn("OPENAI_API_KEY not set, the assistant answers with the fallback reply")
	}

	a.Users = services.NewUserService(services.UserServiceConfig{
		Store:       a.Store,
		Tokens:      a.Tokens,
		Revoked:     revoked,
		Queue:       a.Queue,
		Log:         log,
		Clock:       a.Clock,
		FrontendURL: cfg.FrontendURL,
	})
	a.Exercises = services.NewExerciseService(a.Store, a.Queue, a.Clock, log)
	a.Achievements = services.NewAchievementService(a.Store, a.Queue, a.Clock, log)
	a.Progress = services.NewProgressService(a.Store, a.Clock, log)
	a.Mood = services.NewMoodService(a.Store, a.Clock, log)
	a.Breathing = services.NewBreathingService(a.Store, a.Queue, a.Clock, log)
	a.Chat = services.NewChatService(services.ChatServiceConfig{
		Store:     a.Store,
		Queue:     a.Queue,
		Assistant: assistant,
		Publisher: a.Bus,
		Log:       log,
		Clock:     a.Clock,
	})
	a.Notifications = services.NewNotificationService(a.Store, dispatcher, a.Clock, log)
	a.Maintenance = services.NewMaintenanceService(a.Store, a.Queue, a.Exercises, a.Notifications, a.Clock, log)

	return a, nil
}

// Workers builds the task pool and the daily scheduler. Neither is started.
func (a *App) Workers() (*workers.Pool, *workers.Scheduler, error) {
	pool := workers.NewPool(a.Queue, a.Config.WorkerConcurrency, a.Log)
	services.TaskHandlers{
		Achievements:  a.Achievements,
		Chat:          a.Chat,
		Notifications: a.Notifications,
	}.Register(pool)

	sched := workers.NewScheduler(a.Clock.Loc, a.Log)
	err := errors.Join(
		sched.Daily("update_streaks", a.Config.ScheduleStreakDecay, func(ctx context.Context) error {
			sum, err := a.Maintenance.DecayStreaks(ctx)
			a.Log.Info("streak decay finished", "scanned", sum.Scanned, "reset", sum.Reset, "failed", sum.Failed)
			return err
		}),
		sched.Daily("send_streak_reminders", a.Config.ScheduleReminders, func(ctx context.Context) error {
			n, err := a.Maintenance.SendStreakReminders(ctx)
			a.Log.Info("streak reminders sent", "count", n)
			return err
		}),
		sched.Daily("generate_daily_prompts", a.Config.SchedulePrompts, a.Maintenance.EnsureDailyPrompt),
	)
	if err != nil {
		return nil, nil, err
	}
	return pool, sched, nil
}

// Close releases backends in reverse order of New.
func (a *App) Close() {
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			a.Log.Warn("queue close failed", "error", err)
		}
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
