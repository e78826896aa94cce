package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// mergeSecrets merges the optional secrets file over the configuration file, so credentials
// can live outside the main configuration.
//
// Example:
//
//	config.yaml:
//	  mongodb:
//	    clients:
//	      main:
//	        hosts: [db1:27017, db2:27017]
//
//	secrets.yaml:
//	  mongodb:
//	    clients:
//	      main:
//	        credentials: SCRAM-SHA-256/admin:app:s3cret
//
// The secrets file is optional and automatically discovered:
// - If configFile is "config.yaml", looks for "secrets.yaml" in same directory
// - Can be explicitly set via <ENV_PREFIX>_SECRETS_FILE (defaults to APP_SECRETS_FILE)
func (l *ViperLoader) mergeSecrets(v *viper.Viper) error {
	secretsFile, _, err := l.discoverSecretsFile()
	if err != nil || secretsFile == "" {
		return err
	}
	secretsViper := viper.New()
	secretsViper.SetConfigFile(secretsFile)
	if err := secretsViper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read secrets file %s: %w", secretsFile, err)
	}
	if err := v.MergeConfigMap(secretsViper.AllSettings()); err != nil {
		return fmt.Errorf("failed to merge secrets: %w", err)
	}
	return nil
}

// discoverSecretsFile finds the secrets file using these rules:
// 1. Check <ENV_PREFIX>_SECRETS_FILE (default APP_SECRETS_FILE)
// 2. If configFile is set, look for secrets.{ext} in same directory
// 3. Look for secrets.yaml in current directory
// Returns the path, whether it came from explicit env var, and an error for invalid explicit env values.
func (l *ViperLoader) discoverSecretsFile() (string, bool, error) {
	secretsEnv := l.prefixedEnv("SECRETS_FILE")
	if rawSecretsFile, ok := os.LookupEnv(secretsEnv); ok {
		secretsFile := strings.TrimSpace(rawSecretsFile)
		if secretsFile == "" {
			return "", true, fmt.Errorf("%s is set but empty", secretsEnv)
		}
		info, err := os.Stat(secretsFile)
		if err != nil {
			return "", true, fmt.Errorf("%s points to an inaccessible file %s: %w", secretsEnv, secretsFile, err)
		}
		if info.IsDir() {
			return "", true, fmt.Errorf("%s must point to a file, got directory %s", secretsEnv, secretsFile)
		}
		return secretsFile, true, nil
	}

	if l.configFile != "" {
		dir := filepath.Dir(l.configFile)
		ext := filepath.Ext(l.configFile)
		secretsFile := filepath.Join(dir, "secrets"+ext)
		if info, err := os.Stat(secretsFile); err == nil && !info.IsDir() {
			return secretsFile, false, nil
		}
	}

	for _, ext := range []string{".yaml", ".yml", ".json", ".toml"} {
		secretsFile := "secrets" + ext
		if info, err := os.Stat(secretsFile); err == nil && !info.IsDir() {
			return secretsFile, false, nil
		}
	}

	return "", false, nil
}
