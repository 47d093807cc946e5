package engine

import (
	"fmt"

	"github.com/user/vacore/pkg/handle"
	"github.com/user/vacore/pkg/va"
)

func (s *Session) config(id va.ConfigID) (*configObject, error) {
	c, err := s.configs.Resolve(handle.Handle(id))
	if err != nil {
		return nil, invalidHandle(va.ErrInvalidConfig, uint32(id), err)
	}
	return c, nil
}

// MaxNumProfiles returns the upper bound of QueryConfigProfiles.
func (s *Session) MaxNumProfiles() int { return s.neg.MaxNumProfiles() }

// MaxNumEntrypoints returns the upper bound of QueryConfigEntrypoints.
func (s *Session) MaxNumEntrypoints() int { return s.neg.MaxNumEntrypoints() }

// MaxNumConfigAttributes returns the upper bound of QueryConfigAttributes.
func (s *Session) MaxNumConfigAttributes() int { return s.neg.MaxNumConfigAttributes() }

// MaxNumImageFormats returns the upper bound of QueryImageFormats.
func (s *Session) MaxNumImageFormats() int { return len(s.neg.ImageFormats()) }

// MaxNumSubpictureFormats returns the upper bound of QuerySubpictureFormats.
func (s *Session) MaxNumSubpictureFormats() int {
	formats, _ := s.neg.SubpictureFormats()
	return len(formats)
}

// MaxNumDisplayAttributes returns the upper bound of QueryDisplayAttributes.
func (s *Session) MaxNumDisplayAttributes() int { return len(s.neg.DisplayAttributes()) }

// QueryConfigProfiles lists the supported profiles.
func (s *Session) QueryConfigProfiles() ([]va.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.neg.Profiles(), nil
}

// QueryConfigEntrypoints lists the entrypoints of a profile.
func (s *Session) QueryConfigEntrypoints(profile va.Profile) ([]va.Entrypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.neg.Entrypoints(profile)
}

// GetConfigAttributes reports, for each requested type, the values the
// backend accepts for (profile, entrypoint), or va.AttribNotSupported.
func (s *Session) GetConfigAttributes(profile va.Profile, entrypoint va.Entrypoint, types []va.ConfigAttribType) ([]va.ConfigAttrib, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.neg.GetConfigAttributes(profile, entrypoint, types)
}

// QueryConfigAttributes returns what a config was created with, after
// defaults were merged in.
func (s *Session) QueryConfigAttributes(id va.ConfigID) (va.Profile, va.Entrypoint, []va.ConfigAttrib, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, 0, nil, err
	}
	c, err := s.config(id)
	if err != nil {
		return 0, 0, nil, err
	}
	return c.profile, c.entrypoint, append([]va.ConfigAttrib(nil), c.attribs...), nil
}

// QuerySurfaceAttributes lists the surface attributes usable with a config.
func (s *Session) QuerySurfaceAttributes(id va.ConfigID) ([]va.SurfaceAttrib, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	c, err := s.config(id)
	if err != nil {
		return nil, err
	}
	return s.neg.SurfaceAttributes(c.attribs), nil
}

// QueryImageFormats lists the formats CreateImage accepts.
func (s *Session) QueryImageFormats() ([]va.ImageFormat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.neg.ImageFormats(), nil
}

// QuerySubpictureFormats lists subpicture formats and the flags each supports.
func (s *Session) QuerySubpictureFormats() ([]va.ImageFormat, []uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, nil, err
	}
	formats, flags := s.neg.SubpictureFormats()
	return formats, flags, nil
}

// QueryDisplayAttributes lists display attributes with their bounds.
func (s *Session) QueryDisplayAttributes() ([]va.DisplayAttribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.neg.DisplayAttributes(), nil
}

// CreateConfig validates requested attributes for (profile, entrypoint)
// and stores the merged result.
func (s *Session) CreateConfig(profile va.Profile, entrypoint va.Entrypoint, attribs []va.ConfigAttrib) (va.ConfigID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return va.InvalidConfig, err
	}
	merged, err := s.neg.ResolveConfig(profile, entrypoint, attribs)
	if err != nil {
		return va.InvalidConfig, fmt.Errorf("create config %s/%s: %w", profile, entrypoint, err)
	}
	c := &configObject{profile: profile, entrypoint: entrypoint, attribs: merged}
	h, err := s.configs.Allocate(c)
	if err != nil {
		return va.InvalidConfig, invalidHandle(va.ErrInvalidConfig, uint32(h), err)
	}
	c.id = va.ConfigID(h)
	s.logger.Debug("Config %#x created: %s/%s", uint32(c.id), profile, entrypoint)
	return c.id, nil
}

// DestroyConfig releases a config. Contexts created from it keep working.
func (s *Session) DestroyConfig(id va.ConfigID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.config(id); err != nil {
		return err
	}
	return s.configs.Release(handle.Handle(id))
}
