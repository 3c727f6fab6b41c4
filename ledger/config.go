package ledger

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bitfsorg/sharepool-go/types"
)

// Authority names the principals allowed to perform a policy-gated action.
type Authority int

const (
	// AuthorityOwner allows only the owner.
	AuthorityOwner Authority = iota
	// AuthorityDistributor allows only the distributor.
	AuthorityDistributor
	// AuthorityEither allows the owner or the distributor.
	AuthorityEither
)

func (a Authority) String() string {
	switch a {
	case AuthorityOwner:
		return "owner"
	case AuthorityDistributor:
		return "distributor"
	case AuthorityEither:
		return "either"
	default:
		return fmt.Sprintf("authority(%d)", int(a))
	}
}

// ParseAuthority parses "owner", "distributor" or "either".
func ParseAuthority(s string) (Authority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return AuthorityOwner, nil
	case "distributor":
		return AuthorityDistributor, nil
	case "either":
		return AuthorityEither, nil
	default:
		return 0, fmt.Errorf("%w: unknown authority %q", ErrInvalidConfig, s)
	}
}

// Policy selects the deployment variant. It is resolved once in New.
// Share transfer authority is not part of it: ft_transfer always belongs
// to the distributor and ft_transfer_call to the owner.
type Policy struct {
	// Depositor is who may send tokens into the pending deposits.
	Depositor Authority
	// BadgePenalty enables the badge lookup on burns by non-owners.
	BadgePenalty bool
	// BootstrapMint allows a mint without pending deposits while no shares exist.
	BootstrapMint bool
	// PenaltyDivisor sets the fraction of a burn redirected to the owner
	// when the burner holds no badge. Zero means 5.
	PenaltyDivisor uint64
	// ScoreMultiplier scales the score reported for the score token. Zero means 3.
	ScoreMultiplier uint64
}

// DefaultPolicy returns the owner-deposits policy without badge penalty.
func DefaultPolicy() Policy {
	return Policy{
		Depositor:       AuthorityOwner,
		PenaltyDivisor:  5,
		ScoreMultiplier: 3,
	}
}

// Config holds the identities and policy of a ledger.
type Config struct {
	ContractID  types.AccountID
	Owner       types.AccountID
	Distributor types.AccountID
	Rewarder    types.AccountID // badge registry, required with BadgePenalty
	ScoreToken  types.AccountID // reward token whose payouts are reported as score
	Whitelist   []types.AccountID
	Policy      Policy
	Migrations  []Migration
	Sink        EventSink
	Logger      *slog.Logger
}

// Validate checks the account ids and policy.
func (c *Config) Validate() error {
	for name, id := range map[string]types.AccountID{
		"contract":    c.ContractID,
		"owner":       c.Owner,
		"distributor": c.Distributor,
	} {
		if err := id.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
	}
	if c.Policy.BadgePenalty {
		if err := c.Rewarder.Validate(); err != nil {
			return fmt.Errorf("%w: rewarder required with badge penalty: %w", ErrInvalidConfig, err)
		}
	}
	if c.ScoreToken != "" {
		if err := c.ScoreToken.Validate(); err != nil {
			return fmt.Errorf("%w: score token: %w", ErrInvalidConfig, err)
		}
	}
	for _, tok := range c.Whitelist {
		if err := tok.Validate(); err != nil {
			return fmt.Errorf("%w: whitelist: %w", ErrInvalidConfig, err)
		}
	}
	switch c.Policy.Depositor {
	case AuthorityOwner, AuthorityDistributor, AuthorityEither:
	default:
		return fmt.Errorf("%w: depositor %s", ErrInvalidConfig, c.Policy.Depositor)
	}
	seen := make(map[uint32]bool, len(c.Migrations))
	for _, m := range c.Migrations {
		if m.Version == 0 || seen[m.Version] {
			return fmt.Errorf("%w: migration %q has invalid or duplicate version %d", ErrInvalidConfig, m.Name, m.Version)
		}
		seen[m.Version] = true
	}
	return nil
}

// allows reports whether who satisfies the authority.
func (c *Config) allows(a Authority, who types.AccountID) bool {
	switch a {
	case AuthorityOwner:
		return who == c.Owner
	case AuthorityDistributor:
		return who == c.Distributor
	case AuthorityEither:
		return who == c.Owner || who == c.Distributor
	}
	return false
}
