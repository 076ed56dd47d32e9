package testcase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/load-testing/internal/transport"
)

func alwaysPass(*transport.Response) bool { return true }

func validCase(name string) TestCase {
	return TestCase{
		Name:    name,
		BaseURL: "http://example.com",
		Path:    "/" + name,
		BasicThresholds: map[BasicMetric]string{
			RequestDuration: "p(95)<300",
		},
		Checks: []CheckSpec{
			{Name: "status_check", Predicate: alwaysPass, Threshold: "rate>=0.99"},
		},
	}
}

func TestNewRegistry_Valid(t *testing.T) {
	reg, err := NewRegistry([]TestCase{validCase("home"), validCase("api")})
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"home", "api"}, reg.Names())

	tc, ok := reg.Lookup("api")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/api", tc.URL())

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		cases   []TestCase
		problem string
	}{
		{
			name:    "empty",
			cases:   nil,
			problem: "at least one test case is required",
		},
		{
			name:    "duplicate names",
			cases:   []TestCase{validCase("home"), validCase("home")},
			problem: `duplicate test case name "home"`,
		},
		{
			name: "empty name",
			cases: []TestCase{func() TestCase {
				tc := validCase("x")
				tc.Name = ""
				return tc
			}()},
			problem: "test case 0: name is required",
		},
		{
			name:    "reserved character",
			cases:   []TestCase{validCase("a:b")},
			problem: "must not contain",
		},
		{
			name: "missing base URL",
			cases: []TestCase{func() TestCase {
				tc := validCase("home")
				tc.BaseURL = ""
				return tc
			}()},
			problem: "base URL is required",
		},
		{
			name: "unrecognized basic threshold",
			cases: []TestCase{func() TestCase {
				tc := validCase("home")
				tc.BasicThresholds["http_req_waiting"] = "avg<10"
				return tc
			}()},
			problem: `unrecognized basic threshold "http_req_waiting"`,
		},
		{
			name: "duplicate check names",
			cases: []TestCase{func() TestCase {
				tc := validCase("home")
				tc.Checks = append(tc.Checks, tc.Checks[0])
				return tc
			}()},
			problem: `duplicate check name "status_check"`,
		},
		{
			name: "nil predicate",
			cases: []TestCase{func() TestCase {
				tc := validCase("home")
				tc.Checks[0].Predicate = nil
				return tc
			}()},
			problem: "predicate is required",
		},
		{
			name: "check name with separator",
			cases: []TestCase{func() TestCase {
				tc := validCase("home")
				tc.Checks[0].Name = "status{200}"
				return tc
			}()},
			problem: "must not contain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.cases)
			require.Error(t, err)
			assert.Nil(t, reg)

			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Contains(t, cerr.Error(), tt.problem)
		})
	}
}

func TestNewRegistry_CollectsAllProblems(t *testing.T) {
	a := validCase("home")
	a.BaseURL = ""
	b := validCase("home")

	_, err := NewRegistry([]TestCase{a, b})
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Len(t, cerr.Problems, 2)
}

func TestRegistry_IsolatedFromCaller(t *testing.T) {
	cases := []TestCase{validCase("home")}
	reg, err := NewRegistry(cases)
	require.NoError(t, err)

	cases[0].Name = "mutated"
	cases[0].BasicThresholds[RequestDuration] = "p(95)<1"

	got := reg.TestCases()
	assert.Equal(t, "home", got[0].Name)
	assert.Equal(t, "p(95)<300", got[0].BasicThresholds[RequestDuration])

	got[0].Checks[0].Name = "changed"
	assert.Equal(t, "status_check", reg.At(0).Checks[0].Name)
}

func TestValidateCommonChecks(t *testing.T) {
	assert.NoError(t, ValidateCommonChecks(nil))
	assert.NoError(t, ValidateCommonChecks([]CheckSpec{
		{Name: "no_server_errors", Predicate: alwaysPass, Threshold: "rate>=0.99"},
	}))

	err := ValidateCommonChecks([]CheckSpec{
		{Name: "a", Predicate: alwaysPass, Threshold: "rate>=0.99"},
		{Name: "a", Predicate: alwaysPass, Threshold: "rate>=0.99"},
		{Name: "b", Predicate: alwaysPass},
	})
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Len(t, cerr.Problems, 2)
}

func TestTestCase_SortedBasicMetrics(t *testing.T) {
	tc := TestCase{BasicThresholds: map[BasicMetric]string{
		CheckPassRate:      "rate>=0.99",
		RequestFailureRate: "rate<0.01",
		RequestDuration:    "p(95)<300",
	}}
	assert.Equal(t, []BasicMetric{RequestDuration, RequestFailureRate, CheckPassRate}, tc.SortedBasicMetrics())
}
