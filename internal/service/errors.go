package service

import "errors"

var (
	// ErrNotConfigured means no credentials are on file yet.
	ErrNotConfigured = errors.New("bridge not configured")
	// ErrAlreadyConfigured means setup ran for a device that is already on file.
	ErrAlreadyConfigured = errors.New("device already configured")
	// ErrChannelNotFound means a channel-number lookup found no lineup match.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrMissingChannel means a tune request named neither id nor number.
	ErrMissingChannel = errors.New("channelId or channelNumber is required")
)
