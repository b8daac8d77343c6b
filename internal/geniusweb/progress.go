package geniusweb

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Progress - сколько переговоров уже прошло, от 0 до 1
type Progress interface {
	Get(now time.Time) float64
	IsPastDeadline(now time.Time) bool
}

// ProgressRounds - прогресс по раундам; партия сама вызывает Advance на каждом YourTurn
type ProgressRounds struct {
	Duration     int
	CurrentRound int
	EndTime      time.Time
}

func NewProgressRounds(duration int, end time.Time) *ProgressRounds {
	return &ProgressRounds{Duration: duration, EndTime: end}
}

func (p *ProgressRounds) Get(time.Time) float64 {
	if p.Duration <= 0 {
		return 1
	}
	return min(float64(p.CurrentRound)/float64(p.Duration), 1)
}

func (p *ProgressRounds) IsPastDeadline(now time.Time) bool {
	return p.CurrentRound >= p.Duration || (!p.EndTime.IsZero() && now.After(p.EndTime))
}

// Advance возвращает копию со следующим раундом
func (p *ProgressRounds) Advance() *ProgressRounds {
	next := *p
	if next.CurrentRound < next.Duration {
		next.CurrentRound++
	}
	return &next
}

type ProgressTime struct {
	Duration time.Duration
	Start    time.Time
}

func (p *ProgressTime) Get(now time.Time) float64 {
	if p.Duration <= 0 {
		return 1
	}
	t := float64(now.Sub(p.Start)) / float64(p.Duration)
	return min(max(t, 0), 1)
}

func (p *ProgressTime) IsPastDeadline(now time.Time) bool {
	return !now.Before(p.Start.Add(p.Duration))
}

type progressRoundsJSON struct {
	Duration     int   `json:"duration"`
	CurrentRound int   `json:"currentRound"`
	EndTime      int64 `json:"endtime"`
}

type progressTimeJSON struct {
	Duration int64 `json:"duration"`
	Start    int64 `json:"start"`
}

func marshalProgress(p Progress) ([]byte, error) {
	switch v := p.(type) {
	case *ProgressRounds:
		return wrap("ProgressRounds", progressRoundsJSON{
			Duration:     v.Duration,
			CurrentRound: v.CurrentRound,
			EndTime:      millis(v.EndTime),
		})
	case *ProgressTime:
		return wrap("ProgressTime", progressTimeJSON{
			Duration: v.Duration.Milliseconds(),
			Start:    millis(v.Start),
		})
	case nil:
		return []byte("null"), nil
	}
	return nil, fmt.Errorf("unknown progress type %T", p)
}

func parseProgress(raw []byte) (Progress, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	name, body, err := unwrap(raw)
	if err != nil {
		return nil, err
	}
	switch name {
	case "ProgressRounds":
		var v progressRoundsJSON
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return &ProgressRounds{Duration: v.Duration, CurrentRound: v.CurrentRound, EndTime: fromMillis(v.EndTime)}, nil
	case "ProgressTime":
		var v progressTimeJSON
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return &ProgressTime{Duration: time.Duration(v.Duration) * time.Millisecond, Start: fromMillis(v.Start)}, nil
	}
	return nil, fmt.Errorf("unknown progress type %s", name)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
