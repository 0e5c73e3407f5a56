package resgen

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"gopkg.in/yaml.v3"
)

// Emitter operations.
const (
	OperationListResources          = "list-resources"
	OperationGetResourcesOperations = "get-resources-operations"
)

// Artifact file names.
const (
	ResourcesFile           = "resources.json"
	ResourcesOperationsFile = "resources_operations.json"
)

// LatestVersion may be used as APIVersion to select the newest version of the
// first versioned service.
const LatestVersion = "latest"

var (
	validate      = validator.New()
	optionDecoder = schema.NewDecoder()
)

func init() {
	// "api-version=" clears a value set by the config file.
	optionDecoder.ZeroEmpty(true)
}

// Options configures one emitter run.
type Options struct {
	// Operation selects the emission mode: "list-resources" or
	// "get-resources-operations".
	Operation string `yaml:"operation" schema:"operation" validate:"required,oneof=list-resources get-resources-operations"`

	// Resources are the target resource ids for get-resources-operations.
	// Ids are canonicalized, so path templates are accepted too.
	Resources []string `yaml:"resources" schema:"resources" validate:"dive,required"`

	// APIVersion is the target version for get-resources-operations.
	// Empty or "latest" selects the newest version.
	APIVersion string `yaml:"api-version" schema:"api-version" validate:"excludesall=/?#"`

	// OutputDir is where the artifact is written.
	// Default: "."
	OutputDir string `yaml:"emitter-output-dir" schema:"emitter-output-dir"`
}

// Validate checks the options. Errors match ErrConfiguration.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return configurationError(err)
	}
	return nil
}

// WithDefaults returns a copy of o with defaults applied.
func (o Options) WithDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.APIVersion == LatestVersion {
		o.APIVersion = ""
	}
	return o
}

// ArtifactName returns the file name written by o.Operation.
func (o *Options) ArtifactName() string {
	switch o.Operation {
	case OperationListResources:
		return ResourcesFile
	case OperationGetResourcesOperations:
		return ResourcesOperationsFile
	default:
		return ""
	}
}

// configFile is the on-disk configuration layout.
type configFile struct {
	Options Options `yaml:"options"`
}

// LoadOptions reads options from a YAML file of the form:
//
//	options:
//	  operation: get-resources-operations
//	  api-version: 2022-01-01
//	  resources:
//	    - /widgets/{}
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, Wrap(CodeConfiguration, err, "failed to read config file")
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Options{}, Wrap(CodeConfiguration, err, fmt.Sprintf("failed to parse config file %s", path))
	}
	return cfg.Options, nil
}

// DecodeOptions overlays key/value pairs onto base. Repeated keys append for
// list options, so "resources=/a" and "resources=/b" select both.
func DecodeOptions(base Options, values url.Values) (Options, error) {
	if len(values) == 0 {
		return base, nil
	}

	// Lists replace rather than extend the base value.
	if _, ok := values["resources"]; ok {
		base.Resources = nil
	}
	if err := optionDecoder.Decode(&base, values); err != nil {
		return Options{}, Wrap(CodeConfiguration, err, "failed to decode options")
	}
	return base, nil
}

// ParseOptionPairs parses "key=value" strings into url.Values.
func ParseOptionPairs(pairs []string) (url.Values, error) {
	values := make(url.Values, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, Errorf(CodeConfiguration, "invalid option %q: expected key=value", p)
		}
		values.Add(key, value)
	}
	return values, nil
}
