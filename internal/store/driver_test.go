package store

import (
	"errors"
	"testing"

	"github.com/avessar/authstore/internal/config"
	"github.com/avessar/authstore/internal/logger"
)

func TestDriver_DisconnectedAccessors(t *testing.T) {
	d := NewDriver(config.StructuredConfig{}, logger.Nop())

	if _, err := d.Users(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected from Users, got %v", err)
	}
	if _, err := d.Sessions(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected from Sessions, got %v", err)
	}
	if _, err := d.Tokens(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected from Tokens, got %v", err)
	}
	if _, err := d.Cache(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected from Cache, got %v", err)
	}
}

func TestDriver_DisconnectBeforeConnect(t *testing.T) {
	d := NewDriver(config.StructuredConfig{}, logger.Nop())

	if err := d.Disconnect(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
