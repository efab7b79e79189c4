package livescan

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/profiles"
	"github.com/rs/zerolog"
)

// VerifierConfig wires optional collaborators for credential checks.
type VerifierConfig struct {
	// Profiles resolves role ARNs for named profiles. When nil, or when a
	// profile is unknown to it, the shared AWS config chain is used as-is.
	Profiles profiles.Registry
}

// Verifier confirms that an account target is reachable before a scan
// unit runs. Only the outcome of the check leaves this type; resolved
// credentials are dropped on return and never logged.
type Verifier struct {
	cfg        VerifierConfig
	loadConfig func(ctx context.Context, target domain.LiveAccountTarget) (awssdk.Config, error)
	verify     func(ctx context.Context, cfg awssdk.Config, roleARN string) (string, error)
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	return &Verifier{
		cfg:        cfg,
		loadConfig: loadAWSConfig,
		verify:     verifyIdentity,
	}
}

func (v *Verifier) Resolve(ctx context.Context, target domain.LiveAccountTarget) error {
	logger := zerolog.Ctx(ctx)

	cfg, err := v.loadConfig(ctx, target)
	if err != nil {
		return &domain.AccessError{Target: accountLabel(target), Err: err}
	}

	account, err := v.verify(ctx, cfg, v.roleARN(target))
	if err != nil {
		return &domain.AccessError{Target: accountLabel(target), Err: err}
	}

	if target.AccountID != "" && account != "" && account != target.AccountID {
		return &domain.AccessError{
			Target: accountLabel(target),
			Err:    fmt.Errorf("credentials resolve to account %s, expected %s", account, target.AccountID),
		}
	}

	logger.Debug().Str("target", accountLabel(target)).Msg("account credentials verified")
	return nil
}

func (v *Verifier) roleARN(target domain.LiveAccountTarget) string {
	if v.cfg.Profiles == nil || target.Profile == "" {
		return ""
	}
	profile, err := v.cfg.Profiles.GetProfile(target.Profile)
	if err != nil {
		return ""
	}
	return profile.RoleARN
}

// verifyIdentity resolves the credential chain, assuming the given role
// first when one is configured, and returns the caller account ID.
func verifyIdentity(ctx context.Context, cfg awssdk.Config, roleARN string) (string, error) {
	if roleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleARN)
		cfg.Credentials = awssdk.NewCredentialsCache(provider)
	}

	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Account), nil
}

func accountLabel(target domain.LiveAccountTarget) string {
	if target.Profile != "" {
		return target.Profile
	}
	if target.AccountID != "" {
		return target.AccountID
	}
	return "default"
}
