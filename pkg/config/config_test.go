package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultsMatchGameDeployment(t *testing.T) {
	c := Default()
	assert.Equal(t, "http://localhost:8080", c.AppURL)
	assert.Equal(t, "postgres://clicktrainer:clicktrainer@db:5432/clicktrainer?sslmode=disable", c.DatabaseURL)
	assert.Equal(t, 5, c.RoundDuration)
	assert.Equal(t, 10*time.Second, c.RoundBudget())
	assert.Equal(t, []Actor{{"p1", "Alice"}, {"p2", "Bob"}}, c.Actors)
	assert.Empty(t, Validate(c))
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	err := c.ApplyEnv(envMap(map[string]string{
		EnvAppURL:        "http://app:9000",
		EnvDatabaseURL:   "postgres://u:p@h/db",
		EnvRoundDuration: "8",
		EnvWorkspace:     "/tmp/ws",
		EnvBrowserCLI:    "/opt/pw/playwright-cli",
		EnvPsql:          "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://app:9000", c.AppURL)
	assert.Equal(t, "postgres://u:p@h/db", c.DatabaseURL)
	assert.Equal(t, 8, c.RoundDuration)
	assert.Equal(t, "/tmp/ws", c.Workspace)
	assert.Equal(t, "/opt/pw/playwright-cli", c.BrowserCLI)
	assert.Equal(t, "psql", c.Psql, "empty value keeps the default")
}

func TestApplyEnvRejectsBadRoundDuration(t *testing.T) {
	err := Default().ApplyEnv(envMap(map[string]string{EnvRoundDuration: "five"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvRoundDuration)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	c, err := LoadFile("testdata/valid.yaml")
	require.NoError(t, err)
	assert.Equal(t, "http://game:8080", c.AppURL)
	assert.Equal(t, DriverRod, c.Driver)
	assert.Equal(t, DBPsql, c.DB, "unset keys keep defaults")
	assert.Equal(t, "host", c.Actors[0].Label)
	assert.Len(t, c.Matchers["submit"], 2)
	assert.Equal(t, 6*time.Second, c.RoundBudget())
}

func TestDecodeEmptyDocument(t *testing.T) {
	c := Default()
	require.NoError(t, c.Decode(strings.NewReader("")))
	assert.Equal(t, Default(), c)
}

func TestValidateFile(t *testing.T) {
	c, errs := ValidateFile("testdata/valid.yaml")
	require.NotNil(t, c)
	assert.Empty(t, errs)
}

func TestValidateFileStructural(t *testing.T) {
	c, errs := ValidateFile("testdata/unknown-field.yaml")
	assert.Nil(t, c)
	require.Len(t, errs, 1)
	assert.Equal(t, "structural", errs[0].Phase)
	assert.Contains(t, errs[0].Message, "round_seconds")
}

func TestValidateFileSemanticAndDomain(t *testing.T) {
	_, errs := ValidateFile("testdata/bad-domain.yaml")
	require.NotEmpty(t, errs)

	byPhase := map[string][]string{}
	for _, e := range errs {
		byPhase[e.Phase] = append(byPhase[e.Phase], e.Path+": "+e.Message)
	}
	assert.NotEmpty(t, byPhase["semantic"], "driver enum violation")

	domain := strings.Join(byPhase["domain"], "\n")
	assert.Contains(t, domain, "app_url")
	assert.Contains(t, domain, "duplicate label")
	assert.Contains(t, domain, "matchers.start")
	assert.Contains(t, domain, "matchers.ready")
}

func TestValidateActorCount(t *testing.T) {
	c := Default()
	c.Actors = c.Actors[:1]
	errs := ValidateDomain(c)
	require.Len(t, errs, 1)
	assert.Equal(t, "actors", errs[0].Path)
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, SchemaID, doc["$id"])
	assert.Contains(t, string(data), `"round_duration"`)
	assert.Contains(t, string(data), `"enum"`)
}
