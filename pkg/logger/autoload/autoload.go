// Package autoload configures the global logger from LOG_* environment
// variables as an import side effect. It reads the environment directly so
// importing it never touches the process flag set.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

func init() {
	var cfg logx.Config
	if err := envconfig.Process("LOG", &cfg); err != nil {
		logx.Init()
		return
	}
	logx.Init(cfg)
}
