package config

import (
	"errors"
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Policy toggles of the placement workflow.
const (
	// Staff confirming the withdrawal of an accepted placement frees its slot.
	FeatureReleaseSlotOnWithdrawal = "placement.release_slot_on_withdrawal"
	// Staff turning down a withdrawal returns the application to PENDING.
	FeatureResetOnWithdrawalReject = "placement.reset_on_withdrawal_reject"
	// Unapproved representatives cannot sign in or act.
	FeatureRequireRepApproval = "representative.require_approval"
	// Domain events are mirrored over Redis pub/sub.
	FeatureRedisEventFanout = "events.redis_fanout"
	// Every domain event is written to the audit log.
	FeatureAuditLog = "events.audit_log"
)

var (
	ErrFeatureNotFound       = errors.New("feature not found")
	ErrInvalidRolloutPercent = errors.New("rollout percent must be 0-100")
)

// flag is one toggle. Rollout is the share of users, 0 to 100, that see it
// on; users are bucketed by a hash of feature name and user id.
type flag struct {
	description string
	rollout     int
	// roles limits the toggle to these roles when the caller names one.
	roles []string
}

var defaultFlags = map[string]flag{
	FeatureReleaseSlotOnWithdrawal: {description: "free the confirmed slot when an accepted placement is withdrawn"},
	FeatureResetOnWithdrawalReject: {description: "return an application to PENDING when its withdrawal is turned down", rollout: 100},
	FeatureRequireRepApproval:      {description: "block representatives until staff approve them", rollout: 100, roles: []string{"representative"}},
	FeatureRedisEventFanout:        {description: "mirror domain events to Redis pub/sub"},
	FeatureAuditLog:                {description: "log every domain event", rollout: 100},
}

// FeatureFlags holds the toggles plus per-user overrides. Safe for
// concurrent use.
type FeatureFlags struct {
	mu        sync.RWMutex
	flags     map[string]flag
	overrides map[string]map[string]bool // user id -> feature -> on
}

// NewFeatureFlags returns the defaults without reading the environment.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		flags:     make(map[string]flag, len(defaultFlags)),
		overrides: make(map[string]map[string]bool),
	}
	for name, f := range defaultFlags {
		ff.flags[name] = f
	}
	return ff
}

// LoadFeatureFlags applies FEATURE_<NAME> variables on top of the defaults,
// NAME being the feature name upper-cased with dots as underscores. A value
// is a boolean or a rollout percentage; anything else is ignored.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	for name, f := range ff.flags {
		raw := os.Getenv(featureNameToEnvKey(name))
		if raw == "" {
			continue
		}
		if on, err := strconv.ParseBool(raw); err == nil {
			f.rollout = 0
			if on {
				f.rollout = 100
			}
		} else if p, err := strconv.Atoi(raw); err == nil && p >= 0 && p <= 100 {
			f.rollout = p
		}
		ff.flags[name] = f
	}
	return ff
}

func featureNameToEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// Enabled implements command.FeatureToggles.
func (ff *FeatureFlags) Enabled(feature, userID string) bool {
	return ff.EnabledFor(feature, userID, "")
}

// EnabledFor evaluates feature for a user and role. Either may be empty. A
// per-user override wins; otherwise role targeting applies, then rollout.
func (ff *FeatureFlags) EnabledFor(feature, userID, role string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if on, ok := ff.overrides[userID][feature]; ok && userID != "" {
		return on
	}
	f, ok := ff.flags[feature]
	if !ok || f.rollout == 0 {
		return false
	}
	if role != "" && len(f.roles) > 0 && !contains(f.roles, role) {
		return false
	}
	if f.rollout >= 100 || userID == "" {
		return true
	}
	return bucket(feature, userID) < f.rollout
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func bucket(feature, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}

// SetRollout changes a feature's rollout percentage.
func (ff *FeatureFlags) SetRollout(feature string, percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}
	ff.mu.Lock()
	defer ff.mu.Unlock()
	f, ok := ff.flags[feature]
	if !ok {
		return ErrFeatureNotFound
	}
	f.rollout = percent
	ff.flags[feature] = f
	return nil
}

// Override pins feature on or off for one user.
func (ff *FeatureFlags) Override(userID, feature string, on bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if ff.overrides[userID] == nil {
		ff.overrides[userID] = make(map[string]bool)
	}
	ff.overrides[userID][feature] = on
}

// ClearOverrides drops every override for userID.
func (ff *FeatureFlags) ClearOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.overrides, userID)
}

// FeatureState describes one toggle for display.
type FeatureState struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rollout     int    `json:"rollout_percent"`
	EnvKey      string `json:"env_key"`
}

// States lists every toggle sorted by name.
func (ff *FeatureFlags) States() []FeatureState {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]FeatureState, 0, len(ff.flags))
	for name, f := range ff.flags {
		out = append(out, FeatureState{
			Name:        name,
			Description: f.description,
			Rollout:     f.rollout,
			EnvKey:      featureNameToEnvKey(name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
