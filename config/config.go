/*
=================================================================================
KERNEL CONFIGURATION LOADER
=================================================================================

Loads initial kernel status values from a config file, environment
variables and flags, in viper's usual override order, before a Context
is constructed. Runtime mutation after construction always goes
through kernel.SetKernelStatus - this package only supplies the
starting point, the same separation of concerns the pack's own
viper-backed FromYaml loader draws between "load config" and "apply
config," grounded on
other_examples/6d49ab6e_niceyeti-tabular__tabular-reinforcement-learning.go.go.
=================================================================================
*/

package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// KernelDefaults mirrors the settable fields of kernel.Status, kept as
// its own type so this package doesn't need to import kernel (and vice
// versa): callers copy these into a kernel.Status before calling
// SetKernelStatus.
type KernelDefaults struct {
	Resolution            float64 `mapstructure:"resolution"`
	TicsPerMS             float64 `mapstructure:"tics_per_ms"`
	TotalNumVirtualProcs  int     `mapstructure:"total_num_virtual_procs"`
	OffGridSpiking        bool    `mapstructure:"off_grid_spiking"`
	OverwriteFiles        bool    `mapstructure:"overwrite_files"`
	AdaptiveSpikeBuffers  bool    `mapstructure:"adaptive_spike_buffers"`
	AdaptiveTargetBuffers bool    `mapstructure:"adaptive_target_buffers"`
	BufferSizeSpikeData   int     `mapstructure:"buffer_size_spike_data"`
	BufferSizeTargetData  int     `mapstructure:"buffer_size_target_data"`
}

func defaults() KernelDefaults {
	return KernelDefaults{
		Resolution:            0.1,
		TicsPerMS:              1000.0,
		TotalNumVirtualProcs:  1,
		OffGridSpiking:        false,
		OverwriteFiles:        false,
		AdaptiveSpikeBuffers:  true,
		AdaptiveTargetBuffers: true,
		BufferSizeSpikeData:   256,
		BufferSizeTargetData:  256,
	}
}

// Load reads kernel defaults from configPath (if non-empty) and from
// any SPIKEKERNEL_-prefixed environment variables, falling back to the
// package defaults for anything neither source sets. configPath may be
// empty, in which case only environment overrides and defaults apply.
func Load(configPath string) (KernelDefaults, error) {
	v := viper.New()
	d := defaults()
	v.SetDefault("resolution", d.Resolution)
	v.SetDefault("tics_per_ms", d.TicsPerMS)
	v.SetDefault("total_num_virtual_procs", d.TotalNumVirtualProcs)
	v.SetDefault("off_grid_spiking", d.OffGridSpiking)
	v.SetDefault("overwrite_files", d.OverwriteFiles)
	v.SetDefault("adaptive_spike_buffers", d.AdaptiveSpikeBuffers)
	v.SetDefault("adaptive_target_buffers", d.AdaptiveTargetBuffers)
	v.SetDefault("buffer_size_spike_data", d.BufferSizeSpikeData)
	v.SetDefault("buffer_size_target_data", d.BufferSizeTargetData)

	v.SetEnvPrefix("SPIKEKERNEL")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return KernelDefaults{}, fmt.Errorf("config: load %q: %w", configPath, err)
		}
	}

	var out KernelDefaults
	if err := v.Unmarshal(&out); err != nil {
		return KernelDefaults{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return out, nil
}
