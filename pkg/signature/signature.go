// Package signature contains the method signature descriptors and the loader
// for signature bundle files.
package signature

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedTarget = errors.New("target not supported")
var ErrUnsupportedVersion = errors.New("version not supported")
var ErrInvalidSignature = errors.New("invalid signature")

// Parse walks dir and parses every JSON or YAML signature bundle in it.
func Parse(dir string) (bundles []Bundle, err error) {
	if err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
		default:
			return nil
		}
		b, err := ParseFile(path)
		if err != nil {
			return err
		}
		bundles = append(bundles, *b)
		return nil
	}); err != nil {
		return nil, err
	}
	return bundles, nil
}

// ParseFile parses a single signature bundle.
func ParseFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Bundle
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &b)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &b)
	default:
		return nil, fmt.Errorf("unsupported signature file %s", filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	b.Path = path
	log.WithFields(log.Fields{
		"file":       filepath.Base(path),
		"target":     b.Target,
		"signatures": len(b.Signatures),
	}).Debug("Parsed signature bundle")
	return &b, nil
}

// CheckTarget reports whether the bundle applies to the app package pkg.
// A bundle without a target applies to every package.
func CheckTarget(pkg string, b Bundle) bool {
	return b.Target == "" || pkg == "" || strings.EqualFold(b.Target, pkg)
}

// Select returns the signatures of every bundle that applies to pkg at
// appVersion (both may be empty to skip the checks), in bundle order.
func Select(bundles []Bundle, pkg, appVersion string) ([]*MethodSignature, error) {
	var sigs []*MethodSignature
	for _, b := range bundles {
		if !CheckTarget(pkg, b) {
			log.WithField("file", b.Path).Debugf("Skipping bundle: %v", ErrUnsupportedTarget)
			continue
		}
		if appVersion != "" {
			ok, err := CheckVersion(appVersion, b)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.WithField("file", b.Path).Debugf("Skipping bundle: %v", ErrUnsupportedVersion)
				continue
			}
		}
		sigs = append(sigs, b.Signatures...)
	}
	return sigs, nil
}

// Validate reports problems that would make the signature useless or
// ambiguous. All problems are joined into the returned error.
func (s *MethodSignature) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, fmt.Errorf("%w: missing name", ErrInvalidSignature))
	}
	if s.FuzzyTolerance < 0 {
		errs = append(errs, fmt.Errorf("%w: %s: negative fuzzy tolerance %d", ErrInvalidSignature, s.Name, s.FuzzyTolerance))
	}
	if s.Opcodes != nil {
		if len(s.Opcodes) == 0 {
			errs = append(errs, fmt.Errorf("%w: %s: empty opcode pattern never matches", ErrInvalidSignature, s.Name))
		} else if c := s.Opcodes.Concrete(); c == 0 {
			errs = append(errs, fmt.Errorf("%w: %s: opcode pattern is only wildcards", ErrInvalidSignature, s.Name))
		} else if s.FuzzyTolerance >= c {
			errs = append(errs, fmt.Errorf("%w: %s: fuzzy tolerance %d allows every concrete opcode (%d) to differ", ErrInvalidSignature, s.Name, s.FuzzyTolerance, c))
		}
	} else if s.FuzzyTolerance > 0 {
		errs = append(errs, fmt.Errorf("%w: %s: fuzzy tolerance without an opcode pattern", ErrInvalidSignature, s.Name))
	}
	if s.ReturnType != nil && *s.ReturnType == "" {
		errs = append(errs, fmt.Errorf("%w: %s: empty return type matches everything, omit it instead", ErrInvalidSignature, s.Name))
	}
	return errors.Join(errs...)
}

// Unconstrained reports whether the signature matches every method.
func (s *MethodSignature) Unconstrained() bool {
	return s.ReturnType == nil && s.AccessFlags == nil && s.Parameters == nil && s.Strings == nil && s.Opcodes == nil
}

func (s *MethodSignature) String() string {
	var parts []string
	if s.ReturnType != nil {
		parts = append(parts, "returns="+*s.ReturnType)
	}
	if s.AccessFlags != nil {
		parts = append(parts, fmt.Sprintf("flags=%#x", uint32(*s.AccessFlags)))
	}
	if s.Parameters != nil {
		parts = append(parts, "params=("+strings.Join(s.Parameters, "")+")")
	}
	if s.Strings != nil {
		parts = append(parts, fmt.Sprintf("strings=%d", len(s.Strings)))
	}
	if s.Opcodes != nil {
		parts = append(parts, fmt.Sprintf("opcodes=%d~%d", len(s.Opcodes), s.FuzzyTolerance))
	}
	return fmt.Sprintf("%s{%s}", truncate(s.Name, 48), strings.Join(parts, " "))
}
