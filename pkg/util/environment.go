package util

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// EnvironmentDuration reads a Go duration (eg. 5m) from the environment, ok is false when unset or invalid
func EnvironmentDuration(env map[string]string, name string) (time.Duration, bool) {
	if env[name] == "" {
		return 0, false
	}

	parsed, err := time.ParseDuration(env[name])
	if err != nil {
		return 0, false
	}

	return parsed, true
}

func EnvironmentFloat(env map[string]string, name string) (float64, bool) {
	if env[name] == "" {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(env[name], 64)
	if err != nil {
		return 0, false
	}

	return parsed, true
}
