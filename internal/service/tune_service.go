package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tablo-labs/tablo-bridge/internal/config"
	"github.com/tablo-labs/tablo-bridge/internal/model"
	"github.com/tablo-labs/tablo-bridge/internal/storage"
)

// TuneService resolves channels and issues tune commands. Every request
// rebuilds a client from the persisted credentials; there is no shared
// client state between concurrent callers.
type TuneService struct {
	setupSvc *SetupService
	store    storage.Store
	cfg      *config.Config
	log      zerolog.Logger
}

// NewTuneService constructs TuneService.
func NewTuneService(setupSvc *SetupService, store storage.Store, cfg *config.Config, log zerolog.Logger) *TuneService {
	return &TuneService{setupSvc: setupSvc, store: store, cfg: cfg, log: log}
}

// TuneRequest names the target channel by identifier or by number ("7.1").
type TuneRequest struct {
	ChannelID     string `json:"channelId"`
	ChannelNumber string `json:"channelNumber"`
}

// TuneResult reports what was tuned and the raw device acknowledgement.
type TuneResult struct {
	ChannelID     string         `json:"channelId"`
	ChannelNumber string         `json:"channelNumber,omitempty"`
	ChannelName   string         `json:"channelName,omitempty"`
	Ack           map[string]any `json:"ack,omitempty"`
}

// Channels returns the fresh, flattened channel lineup.
func (s *TuneService) Channels(ctx context.Context) ([]*model.ChannelView, error) {
	creds, err := s.setupSvc.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	channels, err := deviceClient(s.cfg, creds, s.log).GetChannels(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*model.ChannelView, 0, len(channels))
	for i := range channels {
		views = append(views, channels[i].ToView())
	}
	return views, nil
}

// Airings returns guide airings for one channel on a YYYY-MM-DD date.
func (s *TuneService) Airings(ctx context.Context, channelID, date string) ([]map[string]any, error) {
	creds, err := s.setupSvc.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	return deviceClient(s.cfg, creds, s.log).GetAirings(ctx, channelID, date)
}

// Tune resolves the requested channel and issues the signed watch command.
// Channel-number resolution is a linear scan over the fresh lineup; lineups
// run tens to low hundreds of entries.
func (s *TuneService) Tune(ctx context.Context, req TuneRequest) (*TuneResult, error) {
	channelID := strings.TrimSpace(req.ChannelID)
	number := strings.TrimSpace(req.ChannelNumber)
	if channelID == "" && number == "" {
		return nil, ErrMissingChannel
	}

	creds, err := s.setupSvc.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	client := deviceClient(s.cfg, creds, s.log)

	var name string
	if channelID == "" {
		channels, err := client.GetChannels(ctx)
		if err != nil {
			return nil, err
		}
		for i := range channels {
			if channels[i].Number() == number {
				channelID = channels[i].Identifier
				name = channels[i].Name
				break
			}
		}
		if channelID == "" {
			s.appendLog(ctx, "", number, "", model.TuneStatusFailed, ErrChannelNotFound.Error())
			return nil, ErrChannelNotFound
		}
		s.log.Debug().Str("channel_number", number).Str("channel_id", channelID).Msg("resolved channel number")
	}

	ack, err := client.WatchChannel(ctx, channelID, nil)
	if err != nil {
		s.appendLog(ctx, channelID, number, name, model.TuneStatusFailed, err.Error())
		return nil, err
	}
	s.appendLog(ctx, channelID, number, name, model.TuneStatusSuccess, "")

	return &TuneResult{
		ChannelID:     channelID,
		ChannelNumber: number,
		ChannelName:   name,
		Ack:           ack,
	}, nil
}

func (s *TuneService) appendLog(ctx context.Context, channelID, number, name, status, message string) {
	entry := &model.TuneLog{
		ChannelID:     channelID,
		ChannelNumber: number,
		ChannelName:   name,
		Status:        status,
		Message:       message,
	}
	if err := s.store.AppendTuneLog(ctx, entry); err != nil {
		s.log.Warn().Err(err).Msg("failed to append tune log")
	}
}
