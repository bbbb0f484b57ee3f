package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/thesis_tracker/internal/app"
	"github.com/Freeeeeet/thesis_tracker/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/thesis_tracker/internal/model"
	"github.com/Freeeeeet/thesis_tracker/internal/repository/memory"
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"go.uber.org/zap"
)

// Прогоняет кандидатные времена через проверку занятости на тестовом дне руководителя.
// Пример: go run ./cmd/availability -at "14.03.2025 10:30" -duration 45
func main() {
	at := flag.String("at", "", "кандидатное время в формате "+formatting.InputLayout+" (по умолчанию - сетка дня)")
	duration := flag.Int("duration", 60, "длительность встречи в минутах")
	tz := flag.String("tz", "UTC", "часовой пояс")
	verbose := flag.Bool("v", false, "подробный лог")
	flag.Parse()

	env := "production"
	if *verbose {
		env = "development"
	}
	logger := app.NewLogger(env)
	defer logger.Sync()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Неизвестный часовой пояс: %v\n", err)
		os.Exit(1)
	}

	// Тестовый день: послезавтра, чтобы кандидаты были в будущем
	now := time.Now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 2)

	store, supervisor := seedDay(day, logger)
	checker := service.NewAvailabilityChecker(store.Guidance, logger)

	fmt.Printf("📅 Занятость %s на %s:\n", supervisor.Name, day.Format("02.01.2006"))
	from, to := service.DayWindow(day)
	slots, err := store.Guidance.BusySlots(context.Background(), supervisor.ID, from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Не удалось получить занятость: %v\n", err)
		os.Exit(1)
	}
	for _, slot := range slots {
		fmt.Printf("   %s  %s\n", formatting.FormatTimeRange(slot.Start.In(loc), slot.End.In(loc)), slot.StudentName)
	}
	fmt.Println()

	var candidates []time.Time
	if *at != "" {
		start, err := formatting.ParseDateTime(*at, loc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Неверное время: %v\n", err)
			os.Exit(1)
		}
		candidates = append(candidates, start)
	} else {
		for h := 8; h < 19; h++ {
			candidates = append(candidates, day.Add(time.Duration(h)*time.Hour), day.Add(time.Duration(h)*time.Hour+30*time.Minute))
		}
	}

	for _, start := range candidates {
		result := checker.Check(context.Background(), supervisor.ID, start, *duration)
		end := start.Add(time.Duration(*duration) * time.Minute)

		switch result.Status {
		case service.NoConflict:
			fmt.Printf("✅ %s свободно\n", formatting.FormatTimeRange(start, end))
		case service.Conflict:
			fmt.Printf("⛔️ %s %s\n", formatting.FormatTimeRange(start, end), result.Message)
		default:
			fmt.Printf("⚠️ %s %s\n", formatting.FormatTimeRange(start, end), result.Message)
		}
	}
}

// seedDay заполняет хранилище в памяти встречами одного руководителя
func seedDay(day time.Time, logger *zap.Logger) (*memory.Store, model.User) {
	store := memory.New()
	supervisor := store.AddUser(model.User{Name: "Prof. Brown", Email: "brown@example.edu", Role: model.RoleSupervisor})

	sessions := []struct {
		student string
		hour    int
		minute  int
		length  int
		status  model.GuidanceStatus
	}{
		{"Alice", 9, 0, 60, model.GuidanceStatusAccepted},
		{"Bob", 11, 30, 45, model.GuidanceStatusRequested},
		{"Carol", 14, 0, 90, model.GuidanceStatusAccepted},
		// Отменённая и завершённая встречи не занимают время
		{"Dave", 16, 0, 60, model.GuidanceStatusCancelled},
		{"Eve", 17, 0, 30, model.GuidanceStatusCompleted},
	}

	for i, s := range sessions {
		student := store.AddUser(model.User{
			Name:  s.student,
			Email: fmt.Sprintf("student%d@example.edu", i+1),
			Role:  model.RoleStudent,
		})
		store.AddThesis(model.Thesis{StudentID: student.ID, SupervisorID: supervisor.ID, Title: "Thesis of " + s.student})

		start := day.Add(time.Duration(s.hour)*time.Hour + time.Duration(s.minute)*time.Minute)
		session := &model.GuidanceSession{
			StudentID:       student.ID,
			SupervisorID:    supervisor.ID,
			Status:          s.status,
			RequestedDate:   start,
			DurationMinutes: s.length,
		}
		if s.status != model.GuidanceStatusRequested {
			session.ApprovedDate = &start
		}
		if err := store.Guidance.Create(context.Background(), session); err != nil {
			logger.Warn("seed session skipped", zap.String("student", s.student), zap.Error(err))
		}
	}

	return store, supervisor
}
