package transform

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// DateRow представляет одну строку календарного измерения dim_date
type DateRow struct {
	FullDate   time.Time
	Year       int
	Quarter    int
	Month      int
	MonthName  string
	Day        int
	DayOfWeek  int // 1 = понедельник ... 7 = воскресенье
	DayName    string
	WeekOfYear int
	IsWeekend  bool
}

// TimeRow представляет одну строку измерения времени суток dim_time
type TimeRow struct {
	TimeOfDay string // "15:00:00"
	Hour      int
}

// CalendarGenerator детерминированно заполняет измерения dim_date и dim_time.
// Не зависит от staging: генерация идет из настроенного диапазона дат.
type CalendarGenerator struct {
	dwhDB  *sql.DB
	logger *utils.ETLLogger
	start  time.Time
	end    time.Time
}

// NewCalendarGenerator создает новый экземпляр CalendarGenerator
func NewCalendarGenerator(dwhDB *sql.DB, logger *utils.ETLLogger, start, end time.Time) *CalendarGenerator {
	return &CalendarGenerator{
		dwhDB:  dwhDB,
		logger: logger,
		start:  start,
		end:    end,
	}
}

// BuildDateRow вычисляет производные поля календарной строки для одной даты
func BuildDateRow(date time.Time) DateRow {
	// ISO-день недели: понедельник = 1, воскресенье = 7
	dayOfWeek := int(date.Weekday())
	if dayOfWeek == 0 {
		dayOfWeek = 7
	}

	_, weekOfYear := date.ISOWeek()

	return DateRow{
		FullDate:   date,
		Year:       date.Year(),
		Quarter:    (int(date.Month())-1)/3 + 1,
		Month:      int(date.Month()),
		MonthName:  date.Month().String(),
		Day:        date.Day(),
		DayOfWeek:  dayOfWeek,
		DayName:    date.Weekday().String(),
		WeekOfYear: weekOfYear,
		IsWeekend:  dayOfWeek == 6 || dayOfWeek == 7,
	}
}

// DateRows генерирует календарные строки для диапазона дат включительно
func DateRows(start, end time.Time) []DateRow {
	var result []DateRow
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		result = append(result, BuildDateRow(current))
	}
	return result
}

// TimeRows генерирует 24 строки измерения времени суток, по одной на каждый час
func TimeRows() []TimeRow {
	result := make([]TimeRow, 0, 24)
	for hour := 0; hour < 24; hour++ {
		result = append(result, TimeRow{
			TimeOfDay: fmt.Sprintf("%02d:00:00", hour),
			Hour:      hour,
		})
	}
	return result
}

// EnsureDateDimension проверяет и при необходимости регенерирует dim_date.
// Идемпотентно: если таблица уже содержит ожидаемое число строк, ничего не делает.
func (g *CalendarGenerator) EnsureDateDimension() error {
	expected := len(DateRows(g.start, g.end))

	var count int
	if err := g.dwhDB.QueryRow("SELECT COUNT(*) FROM dim_date").Scan(&count); err != nil {
		return fmt.Errorf("ошибка при проверке измерения dim_date: %w", err)
	}

	if count == expected {
		g.logger.Debug("Измерение dim_date уже содержит %d строк", count)
		return nil
	}

	g.logger.Info("Регенерация измерения dim_date (%d -> %d строк)...", count, expected)

	if _, err := g.dwhDB.Exec("TRUNCATE TABLE dim_date"); err != nil {
		return fmt.Errorf("ошибка очистки dim_date: %w", err)
	}

	// Вставляем календарные строки пакетами
	const insertBatch = 1000
	rows := DateRows(g.start, g.end)
	for offset := 0; offset < len(rows); offset += insertBatch {
		limit := offset + insertBatch
		if limit > len(rows) {
			limit = len(rows)
		}
		if err := g.insertDateRows(rows[offset:limit]); err != nil {
			return err
		}
	}

	g.logger.Info("Измерение dim_date заполнено (%d строк)", expected)
	return nil
}

// insertDateRows вставляет пакет календарных строк одним запросом
func (g *CalendarGenerator) insertDateRows(rows []DateRow) error {
	placeholders := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*10)
	for i, row := range rows {
		placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			row.FullDate.Format("2006-01-02"),
			row.Year,
			row.Quarter,
			row.Month,
			row.MonthName,
			row.Day,
			row.DayOfWeek,
			row.DayName,
			row.WeekOfYear,
			row.IsWeekend,
		)
	}

	query := fmt.Sprintf(`
	INSERT INTO dim_date
	(date, year, quarter, month, month_name, day, day_of_week, day_name, week_of_year, is_weekend)
	VALUES %s`, strings.Join(placeholders, ", "))

	if _, err := g.dwhDB.Exec(query, args...); err != nil {
		return fmt.Errorf("ошибка вставки строк dim_date: %w", err)
	}

	return nil
}

// EnsureTimeDimension проверяет и при необходимости регенерирует dim_time (24 часа)
func (g *CalendarGenerator) EnsureTimeDimension() error {
	rows := TimeRows()

	var count int
	if err := g.dwhDB.QueryRow("SELECT COUNT(*) FROM dim_time").Scan(&count); err != nil {
		return fmt.Errorf("ошибка при проверке измерения dim_time: %w", err)
	}

	if count == len(rows) {
		g.logger.Debug("Измерение dim_time уже содержит %d строк", count)
		return nil
	}

	g.logger.Info("Регенерация измерения dim_time...")

	if _, err := g.dwhDB.Exec("TRUNCATE TABLE dim_time"); err != nil {
		return fmt.Errorf("ошибка очистки dim_time: %w", err)
	}

	placeholders := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*2)
	for i, row := range rows {
		placeholders[i] = "(?, ?)"
		args = append(args, row.TimeOfDay, row.Hour)
	}

	query := fmt.Sprintf("INSERT INTO dim_time (time, hour) VALUES %s", strings.Join(placeholders, ", "))
	if _, err := g.dwhDB.Exec(query, args...); err != nil {
		return fmt.Errorf("ошибка вставки строк dim_time: %w", err)
	}

	g.logger.Info("Измерение dim_time заполнено (%d строк)", len(rows))
	return nil
}
