package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// numericKeys are coerced from strings, which is how the environment
// delivers them.
var numericKeys = map[string]bool{
	KeyMinLength:         true,
	KeyUpdateDuration:    true,
	KeyMtimeMargin:       true,
	KeyMaxItems:          true,
	KeyTruncateThreshold: true,
}

// Loader reads the configuration each time Load is called, so edits to the
// file or environment are picked up by a reload.
type Loader struct {
	path     string
	required bool
	ctx      *cue.Context
	schema   cue.Value
}

// NewLoader returns a loader for the file at path. An empty path reads only
// the environment. When required is false a missing file is not an error.
func NewLoader(path string, required bool) (*Loader, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	return &Loader{path: path, required: required, ctx: ctx, schema: schema}, nil
}

// Path returns the configuration file the loader reads, if any.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the file and environment. Invalid values never fail the load:
// they are reported as warnings and replaced by defaults. Only an unreadable
// or unparsable file is an error.
func (l *Loader) Load() (Config, []Warning, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.path != "" {
		v.SetConfigFile(l.path)
		if err := v.ReadInConfig(); err != nil {
			if l.required || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, nil, fmt.Errorf("read config %s: %w", l.path, err)
			}
		}
	}

	cfg := Default()
	var warnings []Warning
	warn := func(key string, raw any, err error) {
		warnings = append(warnings, Warning{Key: key, Value: raw, Err: err})
	}

	if raw, ok := l.lookup(v, KeyMinLength); ok {
		if n, err := l.integer(KeyMinLength, raw); err != nil {
			warn(KeyMinLength, raw, err)
		} else {
			cfg.MinLength = n
		}
	}
	if raw, ok := l.lookup(v, KeyPersistPath); ok {
		if s, err := l.text(KeyPersistPath, raw); err != nil {
			warn(KeyPersistPath, raw, err)
		} else if p, err := expandPath(s); err != nil {
			warn(KeyPersistPath, raw, fmt.Errorf("%w: %v", errNotAbsolute, err))
		} else {
			cfg.PersistPath = p
		}
	}
	if raw, ok := l.lookup(v, KeyUpdateDuration); ok {
		if n, err := l.integer(KeyUpdateDuration, raw); err != nil {
			warn(KeyUpdateDuration, raw, err)
		} else {
			cfg.UpdateDuration = time.Duration(n) * time.Millisecond
		}
	}
	if raw, ok := l.lookup(v, KeyMtimeMargin); ok {
		if n, err := l.integer(KeyMtimeMargin, raw); err != nil {
			warn(KeyMtimeMargin, raw, err)
		} else {
			cfg.MtimeMargin = time.Duration(n) * time.Millisecond
		}
	}
	if raw, ok := l.lookup(v, KeyMaxItems); ok {
		if n, err := l.integer(KeyMaxItems, raw); err != nil {
			warn(KeyMaxItems, raw, err)
		} else {
			cfg.MaxItems = n
		}
	}
	if raw, ok := l.lookup(v, KeyTruncateThreshold); ok {
		if n, err := l.integer(KeyTruncateThreshold, raw); err != nil {
			warn(KeyTruncateThreshold, raw, err)
		} else {
			cfg.TruncateThreshold = n
		}
	}
	return cfg, warnings, nil
}

// lookup returns the raw value for key, normalized for validation.
func (l *Loader) lookup(v *viper.Viper, key string) (any, bool) {
	if !v.IsSet(key) {
		return nil, false
	}
	raw := v.Get(key)
	if s, ok := raw.(string); ok && numericKeys[key] {
		// "50" from the environment; anything yaml cannot read as a
		// scalar stays a string and fails validation.
		var scalar any
		if err := yaml.Unmarshal([]byte(s), &scalar); err == nil && scalar != nil {
			raw = scalar
		}
	}
	if f, ok := raw.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		raw = int64(f)
	}
	return raw, true
}

// check unifies raw with the schema constraint for key.
func (l *Loader) check(key string, raw any) (cue.Value, error) {
	field := l.schema.LookupPath(cue.ParsePath(key))
	val := field.Unify(l.ctx.Encode(raw))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, err
	}
	return val, nil
}

func (l *Loader) integer(key string, raw any) (int, error) {
	val, err := l.check(key, raw)
	if err != nil {
		return 0, err
	}
	n, err := val.Int64()
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("%d is out of range", n)
	}
	return int(n), nil
}

func (l *Loader) text(key string, raw any) (string, error) {
	val, err := l.check(key, raw)
	if err != nil {
		return "", err
	}
	return val.String()
}
