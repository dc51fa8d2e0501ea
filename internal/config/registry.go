package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brainybay/assistant/pkg/provider/mail"
	"github.com/brainybay/assistant/pkg/provider/payment"
	"github.com/brainybay/assistant/pkg/provider/records"
	"github.com/brainybay/assistant/pkg/provider/textgen"
	"github.com/brainybay/assistant/pkg/provider/voice"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// collaborator kind. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	textgen map[string]func(ProviderEntry) (textgen.Provider, error)
	voice   map[string]func(VoiceConfig) (voice.Provider, error)
	records map[string]func(RecordsConfig) (records.Provider, error)
	payment map[string]func(PaymentConfig) (payment.Provider, error)
	mail    map[string]func(MailConfig) (mail.Sender, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		textgen: make(map[string]func(ProviderEntry) (textgen.Provider, error)),
		voice:   make(map[string]func(VoiceConfig) (voice.Provider, error)),
		records: make(map[string]func(RecordsConfig) (records.Provider, error)),
		payment: make(map[string]func(PaymentConfig) (payment.Provider, error)),
		mail:    make(map[string]func(MailConfig) (mail.Sender, error)),
	}
}

// RegisterTextgen registers a text generation backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTextgen(name string, factory func(ProviderEntry) (textgen.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textgen[name] = factory
}

// RegisterVoice registers a voice provider factory under name.
func (r *Registry) RegisterVoice(name string, factory func(VoiceConfig) (voice.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voice[name] = factory
}

// RegisterRecords registers an academic records provider factory under name.
func (r *Registry) RegisterRecords(name string, factory func(RecordsConfig) (records.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[name] = factory
}

// RegisterPayment registers a payment provider factory under name.
func (r *Registry) RegisterPayment(name string, factory func(PaymentConfig) (payment.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payment[name] = factory
}

// RegisterMail registers a mail sender factory under name.
func (r *Registry) RegisterMail(name string, factory func(MailConfig) (mail.Sender, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mail[name] = factory
}

// CreateTextgen instantiates a text generation backend using the factory
// registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateTextgen(entry ProviderEntry) (textgen.Provider, error) {
	r.mu.RLock()
	factory, ok := r.textgen[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: textgen/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVoice instantiates a voice provider using the factory registered under cfg.Name.
func (r *Registry) CreateVoice(cfg VoiceConfig) (voice.Provider, error) {
	r.mu.RLock()
	factory, ok := r.voice[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: voice/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreateRecords instantiates a records provider using the factory registered under cfg.Name.
func (r *Registry) CreateRecords(cfg RecordsConfig) (records.Provider, error) {
	r.mu.RLock()
	factory, ok := r.records[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: records/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreatePayment instantiates a payment provider using the factory registered under cfg.Name.
func (r *Registry) CreatePayment(cfg PaymentConfig) (payment.Provider, error) {
	r.mu.RLock()
	factory, ok := r.payment[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: payment/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreateMail instantiates a mail sender using the factory registered under name.
func (r *Registry) CreateMail(name string, cfg MailConfig) (mail.Sender, error) {
	r.mu.RLock()
	factory, ok := r.mail[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: mail/%q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}
