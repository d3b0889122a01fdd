package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/punchamoorthee/vibeledger/internal/domain"
	"github.com/punchamoorthee/vibeledger/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	apiKeyBytes           = 32
	DefaultAgentCacheSize = 256
)

// AgentRequest registers a new agent.
type AgentRequest struct {
	Name              string
	OwnerAddress      *string
	ReputationAddress *string
}

// AgentRegistry issues and checks agent API keys. Agents never change after
// registration, so lookups are served from an LRU cache.
type AgentRegistry struct {
	store store.Agents
	cache *lru.Cache[int64, domain.Agent]
	log   logrus.FieldLogger
}

func NewAgentRegistry(st store.Agents, cacheSize int, log logrus.FieldLogger) (*AgentRegistry, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultAgentCacheSize
	}
	cache, err := lru.New[int64, domain.Agent](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("agent cache: %w", err)
	}
	return &AgentRegistry{
		store: st,
		cache: cache,
		log:   log.WithField("component", "agents"),
	}, nil
}

// Register creates an agent with a fresh API key. The returned record is the
// only place the key is ever handed out.
func (r *AgentRegistry) Register(ctx context.Context, req AgentRequest) (domain.Agent, error) {
	if req.Name == "" {
		return domain.Agent{}, validationError("agent name is required")
	}

	key, err := generateAPIKey()
	if err != nil {
		return domain.Agent{}, err
	}

	agent := domain.Agent{
		Name:              req.Name,
		APIKey:            key,
		OwnerAddress:      nonEmpty(req.OwnerAddress),
		ReputationAddress: nonEmpty(req.ReputationAddress),
	}
	if err := r.store.InsertAgent(ctx, &agent); err != nil {
		return domain.Agent{}, err
	}
	r.cache.Add(agent.ID, agent)

	r.log.WithFields(logrus.Fields{"agent_id": agent.ID, "name": agent.Name}).Info("agent registered")
	return agent, nil
}

// Authenticate checks key against the agent's API key.
func (r *AgentRegistry) Authenticate(ctx context.Context, agentID int64, key string) (domain.Agent, error) {
	if key == "" {
		return domain.Agent{}, ErrAuthenticationRequired
	}

	agent, err := r.lookup(ctx, agentID)
	if err != nil {
		return domain.Agent{}, err
	}

	if subtle.ConstantTimeCompare([]byte(agent.APIKey), []byte(key)) != 1 {
		r.log.WithField("agent_id", agentID).Warn("agent presented an invalid api key")
		return domain.Agent{}, ErrAuthorization
	}
	return agent, nil
}

func (r *AgentRegistry) lookup(ctx context.Context, agentID int64) (domain.Agent, error) {
	if agent, ok := r.cache.Get(agentID); ok {
		return agent, nil
	}

	agent, err := r.store.GetAgent(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Agent{}, fmt.Errorf("%w: agent %d", ErrNotFound, agentID)
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("agent lookup: %w", err)
	}
	r.cache.Add(agentID, agent)
	return agent, nil
}

// ReputationTarget is the address credited for an agent's activity.
func ReputationTarget(agent domain.Agent) string {
	if addr := domain.Value(agent.ReputationAddress); addr != "" {
		return addr
	}
	if addr := domain.Value(agent.OwnerAddress); addr != "" {
		return addr
	}
	return "agent:" + strconv.FormatInt(agent.ID, 10)
}

func generateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
