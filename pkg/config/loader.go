// Package config loads configuration from environment variables, optional
// YAML files, and struct tag defaults. Values are resolved in priority order:
//
//	envDefault struct tags  (lowest priority)
//	YAML config file        (medium priority)
//	Environment variables   (highest priority)
//
// Defaults are baked into the struct tags, a file provides deployment
// overrides, and env vars take final precedence.
//
// # Struct Tags
//
//   - `env:"VAR_NAME"` maps the field to an environment variable
//   - `envDefault:"value"` sets a default when the field is zero-valued
//   - `required:"true"` fails validation if the field remains zero after loading
//
// Fields must also carry `yaml` tags for file-based loading.
//
// # Usage
//
//	type GateConfig struct {
//	    JWKSURL  string        `env:"JWKS_URL" yaml:"jwks_url" required:"true"`
//	    ClientID string        `env:"CLIENT_ID" yaml:"client_id"`
//	    KeyTTL   time.Duration `env:"KEY_TTL" envDefault:"24h" yaml:"key_ttl"`
//	}
//
//	cfg := config.MustLoad[GateConfig](
//	    config.New().WithEnvPrefix("REALMGATE").WithFile("gate.yaml"),
//	)
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// durationType caches the reflect.Type for time.Duration. Duration has
// Kind() == Int64, so it must be distinguished from plain int64 fields.
var durationType = reflect.TypeOf(time.Duration(0))

// Validator is implemented by configuration structs that carry cross-field
// rules beyond the `required` tag. Load calls Validate after all layers
// have been applied.
type Validator interface {
	Validate() error
}

// Loader resolves configuration with a layered strategy. Use [New] to
// create one and configure it with [Loader.WithEnvPrefix] and
// [Loader.WithFile] before calling [Loader.Load].
//
// Loader is not safe for concurrent use.
type Loader struct {
	envPrefix string
	filePath  string
}

// New creates a Loader that reads from environment variables only.
func New() *Loader {
	return &Loader{}
}

// WithEnvPrefix sets a prefix joined with an underscore to every env var
// name derived from the "env" tag. WithEnvPrefix("REALMGATE") makes a field
// tagged `env:"JWKS_URL"` read REALMGATE_JWKS_URL. The prefix is uppercased.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = strings.ToUpper(prefix)
	return l
}

// WithFile sets the path to a YAML configuration file. A missing file is
// not an error; file configuration is optional. The path must not contain
// directory traversal sequences ("..").
func (l *Loader) WithFile(path string) *Loader {
	l.filePath = path
	return l
}

// Load populates the given struct pointer, resolving values in priority
// order (env vars > file > envDefault tags), then validates `required`
// fields and calls the struct's [Validator] implementation if present.
//
// Returns a *[rgerr.Error] with code [rgerr.CodeConfiguration] for loading
// failures, or [rgerr.CodeValidationRequired] / [rgerr.CodeValidation] for
// validation failures.
func (l *Loader) Load(cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return rgerr.New(rgerr.CodeConfiguration,
			"config: Load requires a non-nil pointer to a struct")
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return rgerr.New(rgerr.CodeConfiguration,
			"config: Load requires a pointer to a struct")
	}

	if err := applyDefaults(rv); err != nil {
		return err
	}

	if l.filePath != "" {
		if err := l.loadFile(cfg); err != nil {
			return err
		}
	}

	if err := applyEnv(rv, l.envPrefix); err != nil {
		return err
	}

	return validate(cfg, rv)
}

// MustLoad creates a zero value of T, loads configuration into it, and
// returns it. It panics on failure; use it in composition roots where an
// invalid configuration must prevent startup.
func MustLoad[T any](loader *Loader) T {
	var cfg T
	if err := loader.Load(&cfg); err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

func (l *Loader) loadFile(cfg any) error {
	if strings.Contains(l.filePath, "..") {
		return rgerr.New(rgerr.CodeConfiguration,
			"config: file path must not contain directory traversal (..) sequences")
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rgerr.Wrapf(err, rgerr.CodeConfiguration,
			"config: failed to read file %q", l.filePath)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return rgerr.Wrapf(err, rgerr.CodeConfiguration,
			"config: failed to parse YAML file %q", l.filePath)
	}
	return nil
}

// applyDefaults sets zero-valued fields to their envDefault tag values,
// recursing into nested structs.
func applyDefaults(rv reflect.Value) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			if err := applyDefaults(field); err != nil {
				return err
			}
			continue
		}

		tag := sf.Tag.Get("envDefault")
		if tag == "" || !field.IsZero() {
			continue
		}

		if err := setField(field, tag); err != nil {
			return rgerr.Wrapf(err, rgerr.CodeConfiguration,
				"config: failed to apply default for field %q", sf.Name)
		}
	}

	return nil
}

// applyEnv sets fields from environment variables named by the "env" tag.
// For nested structs, the parent's env tag joins the child's with "_".
func applyEnv(rv reflect.Value, prefix string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		envTag := sf.Tag.Get("env")

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			nestedPrefix := prefix
			if envTag != "" {
				if nestedPrefix != "" {
					nestedPrefix = nestedPrefix + "_" + envTag
				} else {
					nestedPrefix = envTag
				}
			}
			if err := applyEnv(field, nestedPrefix); err != nil {
				return err
			}
			continue
		}

		if envTag == "" {
			continue
		}

		envKey := envTag
		if prefix != "" {
			envKey = prefix + "_" + envTag
		}

		val, ok := os.LookupEnv(envKey)
		if !ok {
			continue
		}

		if err := setField(field, val); err != nil {
			return rgerr.Wrapf(err, rgerr.CodeConfiguration,
				"config: failed to set field %q from env var %q", sf.Name, envKey)
		}
	}

	return nil
}

// validate enforces `required:"true"` tags and the struct's own Validator.
func validate(cfg any, rv reflect.Value) error {
	if err := validateRequired(rv, ""); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, isStructured := rgerr.AsError(err); isStructured {
				return err
			}
			return rgerr.Wrap(err, rgerr.CodeValidation,
				"config: validation failed")
		}
	}
	return nil
}

func validateRequired(rv reflect.Value, path string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		name := sf.Name
		if path != "" {
			name = path + "." + sf.Name
		}

		if field.Kind() == reflect.Struct && sf.Type != durationType {
			if err := validateRequired(field, name); err != nil {
				return err
			}
			continue
		}

		if sf.Tag.Get("required") == "true" && field.IsZero() {
			return rgerr.Newf(rgerr.CodeValidationRequired,
				"config: required field %q is not set", name)
		}
	}

	return nil
}

// setField parses the string value according to the field's kind.
// Supported: string (and named string types), bool, signed integers,
// time.Duration, and []string (comma-separated).
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("cannot parse duration %q: %w", value, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cannot parse bool %q: %w", value, err)
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("cannot parse integer %q: %w", value, err)
		}
		field.SetInt(n)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)

	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}

	return nil
}
