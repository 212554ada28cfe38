// Package config loads and validates batch configuration via a
// parse/set-defaults/validate pipeline: the working root, layout and scratch
// overrides, worker-pool sizing, tool discovery overrides, and the reference
// database paths each adapter needs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rschaeff/dpamengine/pkg/logger"
)

// ToolConfig locates one external tool: an explicit override path wins over
// the adapter's own env-var/canonical-prefix/PATH discovery chain.
type ToolConfig struct {
	Override string `yaml:"override,omitempty"`
}

// ProfileSearchConfig configures the sequence-profile search adapter family.
type ProfileSearchConfig struct {
	MSA             ToolConfig `yaml:"msa,omitempty"`
	Profile         ToolConfig `yaml:"profile,omitempty"`
	Search          ToolConfig `yaml:"search,omitempty"`
	ReferenceDBPath string     `yaml:"reference_db_path,omitempty"`
}

// StructSearchConfig configures the structure search adapter.
type StructSearchConfig struct {
	Tool            ToolConfig `yaml:"tool,omitempty"`
	ReferenceDBPath string     `yaml:"reference_db_path,omitempty"`
}

// PairwiseConfig configures the pairwise structural alignment adapter.
type PairwiseConfig struct {
	Tool ToolConfig `yaml:"tool,omitempty"`
	// TemplateLibraryDir is the canonical, read-only directory every
	// candidate template structure is staged from into scratch before
	// alignment.
	TemplateLibraryDir string `yaml:"template_library_dir,omitempty"`
	// TemplateExt is the file extension template structures are stored
	// under in TemplateLibraryDir; defaults to "pdb".
	TemplateExt string `yaml:"template_ext,omitempty"`
}

// SecStructConfig configures the secondary-structure assignment adapter.
type SecStructConfig struct {
	Tool ToolConfig `yaml:"tool,omitempty"`
}

// NeuralNetConfig configures the shared-resource inference adapter.
type NeuralNetConfig struct {
	Tool      ToolConfig `yaml:"tool,omitempty"`
	ModelPath string     `yaml:"model_path,omitempty"`
	BatchSize int        `yaml:"batch_size,omitempty"`
}

// RefDBConfig configures the one-time reference-database bootstrap; it is
// read by the refdb CLI subcommand, never by the batch runner itself.
type RefDBConfig struct {
	// ArchivePath is the vendor-supplied database tarball to unpack.
	ArchivePath string `yaml:"archive_path,omitempty"`
	// DestRoot is the directory the unpacked database tree lands in.
	DestRoot string `yaml:"dest_root,omitempty"`
	// Overwrite lets an existing unpacked file be replaced in place.
	Overwrite bool `yaml:"overwrite,omitempty"`
}

// Config is one batch run's full configuration.
type Config struct {
	// WorkingRoot is the batch's working directory; required.
	WorkingRoot string `yaml:"working_root"`
	// Layout selects "sharded" or "flat" for run; SetDefaults fills in
	// "sharded" when empty. resume and summary ignore it and detect the
	// layout already on disk.
	Layout string `yaml:"layout,omitempty"`
	// StructureExt and ConfidenceExt name the raw input file extensions
	// protein.Discover pairs up under the working root: "<id>.<StructureExt>"
	// and "<id>.<ConfidenceExt>".
	StructureExt  string `yaml:"structure_ext,omitempty"`
	ConfidenceExt string `yaml:"confidence_ext,omitempty"`
	// BatchID names this batch run for scratch-directory naming and logging.
	BatchID string `yaml:"batch_id,omitempty"`

	// ScratchOverrideRoot, if set, is used verbatim as the scratch base root.
	ScratchOverrideRoot string `yaml:"scratch_override_root,omitempty"`
	// ScratchCanonicalDir is tried before falling back to the OS temp dir.
	ScratchCanonicalDir string `yaml:"scratch_canonical_dir,omitempty"`

	// Workers sizes the worker pool for pooled-fanout steps; 0 means
	// workerpool.Default() (CPU count).
	Workers int `yaml:"workers,omitempty"`
	// PairwiseFanoutMultiplier scales Workers up for the pairwise-alignment
	// fan-out, since its bottleneck is filesystem ops, not CPU; clamped to
	// [1,4] by workerpool.SizedForIO.
	PairwiseFanoutMultiplier int `yaml:"pairwise_fanout_multiplier,omitempty"`

	// CanonicalToolPrefix is the install prefix every adapter's discovery
	// chain tries before a bare PATH lookup.
	CanonicalToolPrefix string `yaml:"canonical_tool_prefix,omitempty"`

	ProfileSearch ProfileSearchConfig `yaml:"profile_search,omitempty"`
	StructSearch  StructSearchConfig  `yaml:"struct_search,omitempty"`
	Pairwise      PairwiseConfig      `yaml:"pairwise,omitempty"`
	SecStruct     SecStructConfig     `yaml:"secstruct,omitempty"`
	NeuralNet     NeuralNetConfig     `yaml:"neuralnet,omitempty"`
	RefDB         RefDBConfig         `yaml:"refdb,omitempty"`
}

// ParseFromFile reads and unmarshals a YAML config file, applies defaults,
// and validates the result via a parse/set-defaults/validate pipeline.
func ParseFromFile(path string) (*Config, error) {
	log := logger.Get()
	log.Infof("Reading batch configuration from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML from %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed for %s: %w", path, err)
	}
	return &cfg, nil
}

// SetDefaults fills in every field the caller left zero with the engine's
// standard defaults.
func (c *Config) SetDefaults() {
	if c.BatchID == "" {
		c.BatchID = "default"
	}
	if c.Layout == "" {
		c.Layout = "sharded"
	}
	if c.StructureExt == "" {
		c.StructureExt = "pdb"
	}
	if c.ConfidenceExt == "" {
		c.ConfidenceExt = "json"
	}
	if c.Workers <= 0 {
		c.Workers = 0 // resolved to workerpool.Default() by callers
	}
	if c.PairwiseFanoutMultiplier <= 0 {
		c.PairwiseFanoutMultiplier = 4
	}
	if c.NeuralNet.BatchSize <= 0 {
		c.NeuralNet.BatchSize = 256
	}
}

// Validate reports whether the configuration is well-formed enough to start
// a batch. It does not check tool availability — that is the runner's job at
// the point each step is about to run.
func (c *Config) Validate() error {
	if c.WorkingRoot == "" {
		return fmt.Errorf("working_root is required")
	}
	switch c.Layout {
	case "sharded", "flat":
	default:
		return fmt.Errorf("layout must be 'sharded' or 'flat', got %q", c.Layout)
	}
	return nil
}
