package formatting

import (
	"fmt"
	"strings"
	"time"
)

// InputLayout формат, в котором пользователь вводит дату и время встречи
const InputLayout = "02.01.2006 15:04"

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d ч", hours)
	}
	return fmt.Sprintf("%d ч %d мин", hours, mins)
}

// ParseDateTime разбирает ввод "ДД.ММ.ГГГГ ЧЧ:ММ" в часовом поясе loc
func ParseDateTime(input string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(InputLayout, strings.Join(strings.Fields(input), " "), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected %s: %w", InputLayout, err)
	}
	return t, nil
}

// PluralizeSessions возвращает правильное склонение слова "консультация"
func PluralizeSessions(count int) string {
	if count%10 == 1 && count%100 != 11 {
		return "консультация"
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return "консультации"
	}
	return "консультаций"
}
