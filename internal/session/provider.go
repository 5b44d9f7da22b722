// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/crmchat/internal/storage"
	"github.com/jeranaias/crmchat/internal/util"
)

// LabelPrefixLen is how many characters of the identifier the header shows.
const LabelPrefixLen = 8

// Provider hands out the persisted session identifier.
type Provider struct {
	mu     sync.Mutex
	store  storage.Store
	key    string
	cached string
	log    zerolog.Logger

	// newID is replaced in tests to simulate generator failure.
	newID func() (string, error)
}

// NewProvider returns a Provider that keeps the identifier under key in store.
func NewProvider(store storage.Store, key string, logger zerolog.Logger) *Provider {
	return &Provider{
		store: store,
		key:   key,
		log:   logger,
		newID: generateID,
	}
}

// ObtainOrCreate returns the session identifier, creating and persisting a
// new one if the store has none. After the first successful call the value
// is served from memory.
func (p *Provider) ObtainOrCreate() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	id, err := p.store.Get(p.key)
	switch {
	case err == nil && id != "":
		p.cached = id
		p.log.Debug().Str("session", util.Abbreviate(id, LabelPrefixLen)).Msg("session restored")
		return id, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return "", fmt.Errorf("failed to read session id: %w", err)
	}

	id, err = p.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	if err := p.store.Set(p.key, id); err != nil {
		return "", fmt.Errorf("failed to persist session id: %w", err)
	}

	p.cached = id
	p.log.Info().Str("session", util.Abbreviate(id, LabelPrefixLen)).Msg("session created")
	return id, nil
}

// Peek reports the stored identifier without creating one.
func (p *Provider) Peek() (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, true, nil
	}
	id, err := p.store.Get(p.key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session id: %w", err)
	}
	return id, id != "", nil
}

// Clear deletes the stored identifier and forgets the cached one. The next
// ObtainOrCreate yields a new identifier.
func (p *Provider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Delete(p.key); err != nil {
		return fmt.Errorf("failed to clear session id: %w", err)
	}
	if p.cached != "" {
		p.log.Info().Str("session", util.Abbreviate(p.cached, LabelPrefixLen)).Msg("session cleared")
	}
	p.cached = ""
	return nil
}

// Label formats id for the conversation header.
func Label(id string) string {
	return "Session: " + util.Abbreviate(id, LabelPrefixLen)
}

func generateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
