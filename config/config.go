// Package config loads optional Driver defaults from an env-var-pointed
// TOML file, the same viper-driven pattern the teacher uses for its own
// simulation configuration. The core driver never reads this package
// itself; it exists for batch tooling that wants to prefill Options
// without wiring its own flag surface.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/Tubbz-alt/sbmlsolver"
)

const configEnvVar = "SBMLSOLVER_CONFIG"

// LoadDefaults reads a "driver.toml" from the directory named by the
// SBMLSOLVER_CONFIG environment variable and overlays it onto
// sbmlsolver.DefaultOptions. If the variable is unset, it returns
// DefaultOptions unchanged: the TOML file is an optional convenience,
// never a required input.
func LoadDefaults() (sbmlsolver.Options, error) {
	opts := sbmlsolver.DefaultOptions()

	confPath := os.Getenv(configEnvVar)
	if confPath == "" {
		return opts, nil
	}

	viper.SetConfigName("driver")
	viper.AddConfigPath(confPath)
	if err := viper.ReadInConfig(); err != nil {
		return opts, fmt.Errorf("config: reading %s/driver.toml: %w", confPath, err)
	}

	if viper.IsSet("tolerances.abs") {
		opts.AbsTol = viper.GetFloat64("tolerances.abs")
	}
	if viper.IsSet("tolerances.rel") {
		opts.RelTol = viper.GetFloat64("tolerances.rel")
	}
	if viper.IsSet("solver.max_bdf_order") {
		opts.MaxBDFOrder = viper.GetInt("solver.max_bdf_order")
	}
	if viper.IsSet("solver.max_steps") {
		opts.MaxSteps = viper.GetInt("solver.max_steps")
	}
	if viper.IsSet("solver.init_step") {
		opts.InitStep = viper.GetFloat64("solver.init_step")
	}
	if viper.IsSet("solver.min_step") {
		opts.MinStep = viper.GetFloat64("solver.min_step")
	}
	if viper.IsSet("solver.max_step") {
		opts.MaxStep = viper.GetFloat64("solver.max_step")
	}
	if viper.IsSet("events.follow") {
		opts.FollowEvents = viper.GetBool("events.follow")
	}
	return opts, nil
}
