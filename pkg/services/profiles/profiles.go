package profiles

import (
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"gopkg.in/ini.v1"
)

// Profile describes one scannable cloud account as declared in an
// AWS-style shared config file.
type Profile struct {
	Name      string
	AccountID string
	Regions   []string
	RoleARN   string
}

// Target converts the profile into a live-account analysis target.
func (p Profile) Target() domain.LiveAccountTarget {
	return domain.LiveAccountTarget{
		Profile:   p.Name,
		AccountID: p.AccountID,
		Regions:   p.Regions,
	}
}

// Registry resolves account profiles by name.
type Registry interface {
	GetProfiles() ([]string, error)
	GetProfile(name string) (Profile, error)
}

type iniRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &iniRegistry{cfg: cfg}, nil
}

func (r *iniRegistry) GetProfiles() ([]string, error) {
	var profiles []string
	for _, section := range r.cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		profiles = append(profiles, profileName(section.Name()))
	}
	return profiles, nil
}

func (r *iniRegistry) GetProfile(name string) (Profile, error) {
	section := r.lookup(name)
	if section == nil {
		return Profile{}, &domain.ConfigurationError{
			Field:  "profile",
			Reason: fmt.Sprintf("profile %q not found", name),
		}
	}

	return Profile{
		Name:      name,
		AccountID: section.Key("account_id").String(),
		Regions:   section.Key("regions").Strings(","),
		RoleARN:   section.Key("role_arn").String(),
	}, nil
}

// lookup accepts both the aws-config section form "profile <name>" and a
// bare "<name>" section.
func (r *iniRegistry) lookup(name string) *ini.Section {
	for _, candidate := range []string{"profile " + name, name} {
		section, err := r.cfg.GetSection(candidate)
		if err == nil && len(section.Keys()) > 0 {
			return section
		}
	}
	return nil
}

func profileName(section string) string {
	const prefix = "profile "
	if len(section) > len(prefix) && section[:len(prefix)] == prefix {
		return section[len(prefix):]
	}
	return section
}
