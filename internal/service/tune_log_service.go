package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tablo-labs/tablo-bridge/internal/model"
	"github.com/tablo-labs/tablo-bridge/internal/storage"
)

// TuneLogService provides filtering and statistics over the tune history.
type TuneLogService struct {
	store storage.Store
}

// NewTuneLogService builds the tune log service.
func NewTuneLogService(store storage.Store) *TuneLogService {
	return &TuneLogService{store: store}
}

// Query returns paginated logs, newest first.
func (s *TuneLogService) Query(ctx context.Context, filter model.TuneLogFilter) (*model.TuneLogPage, error) {
	logs, err := s.filteredLogs(ctx, filter)
	if err != nil {
		return nil, err
	}

	total := len(logs)
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	pages := (total + filter.PageSize - 1) / filter.PageSize

	return &model.TuneLogPage{
		Data:     logs[start:end],
		Total:    total,
		Pages:    pages,
		PageNum:  filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// CountByDate aggregates tune attempts per day/month/year.
func (s *TuneLogService) CountByDate(ctx context.Context, dateType string, begin, end *time.Time) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, model.TuneLogFilter{BeginTime: begin, EndTime: end})
	if err != nil {
		return nil, err
	}

	layout := "2006-01-02"
	switch strings.ToLower(dateType) {
	case "year":
		layout = "2006"
	case "month":
		layout = "2006-01"
	}

	counter := make(map[string]int)
	for _, entry := range logs {
		counter[entry.CreatedAt.Format(layout)]++
	}

	var result []map[string]any
	for key, count := range counter {
		result = append(result, map[string]any{
			"date":  key,
			"count": count,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i]["date"].(string) < result[j]["date"].(string)
	})
	return result, nil
}

// CountByStatus aggregates by attempt outcome.
func (s *TuneLogService) CountByStatus(ctx context.Context, begin, end *time.Time) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, model.TuneLogFilter{BeginTime: begin, EndTime: end})
	if err != nil {
		return nil, err
	}
	counter := make(map[string]int)
	for _, entry := range logs {
		status := entry.Status
		if status == "" {
			status = "UNKNOWN"
		}
		counter[status]++
	}
	return mapToKV(counter, "status"), nil
}

// CountByChannel aggregates using channel names when available.
func (s *TuneLogService) CountByChannel(ctx context.Context, begin, end *time.Time) ([]map[string]any, error) {
	logs, err := s.filteredLogs(ctx, model.TuneLogFilter{BeginTime: begin, EndTime: end})
	if err != nil {
		return nil, err
	}
	counter := make(map[string]int)
	for _, entry := range logs {
		label := strings.TrimSpace(entry.ChannelName)
		if label == "" {
			label = entry.ChannelID
		}
		if label == "" {
			label = entry.ChannelNumber
		}
		if label == "" {
			label = "UNKNOWN"
		}
		counter[label]++
	}
	return mapToKV(counter, "channel"), nil
}

func (s *TuneLogService) filteredLogs(ctx context.Context, filter model.TuneLogFilter) ([]*model.TuneLog, error) {
	logs, err := s.store.ListTuneLogs(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]*model.TuneLog, 0, len(logs))
	for _, entry := range logs {
		if filter.ChannelID != "" && entry.ChannelID != filter.ChannelID {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(entry.Status, filter.Status) {
			continue
		}
		if filter.BeginTime != nil && entry.CreatedAt.Before(*filter.BeginTime) {
			continue
		}
		if filter.EndTime != nil && entry.CreatedAt.After(*filter.EndTime) {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	return filtered, nil
}

func mapToKV(counter map[string]int, keyName string) []map[string]any {
	result := make([]map[string]any, 0, len(counter))
	for key, count := range counter {
		result = append(result, map[string]any{
			keyName: key,
			"count": count,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i][keyName].(string) < result[j][keyName].(string)
	})
	return result
}
