package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
	// GroupID is an optional second recipient, e.g. a shared group of pilots.
	GroupID int64 `mapstructure:"group_id"`
}

func (config TelegramConfig) validate() error {

	var missingFields []string

	if config.Token == "" {
		missingFields = append(missingFields, "token")
	}

	if config.ChatID == 0 && config.GroupID == 0 {
		missingFields = append(missingFields, "chat_id or group_id")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config TelegramConfig) bindEnvironmentVariables() error {
	var errs []error
	if err := viper.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("telegram.group_id", "TELEGRAM_GROUP_ID"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
