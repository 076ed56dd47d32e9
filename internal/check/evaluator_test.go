package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/load-testing/internal/metrics"
	"github.com/giantswarm/load-testing/internal/testcase"
	"github.com/giantswarm/load-testing/internal/testutil"
	"github.com/giantswarm/load-testing/internal/transport"
)

func spec(name string, pred testcase.Predicate) testcase.CheckSpec {
	return testcase.CheckSpec{Name: name, Predicate: pred, Threshold: "rate>=0.99"}
}

func TestEvaluate_AllPass(t *testing.T) {
	sink := &testutil.RecordingSink{}
	resp := &transport.Response{Status: 200, Body: []byte("ok")}

	res := Evaluate(resp, []testcase.CheckSpec{
		spec("status_200", testcase.StatusIn(200)),
		spec("body", testcase.BodyPresent()),
	}, Scope{Kind: Specific, TestCase: "home"}, sink)

	assert.True(t, res.Passed)
	assert.Empty(t, res.Failed())
	require.Len(t, res.Outcomes, 2)

	obs := sink.Observations()
	require.Len(t, obs, 2)
	assert.Equal(t, metrics.Checks, obs[0].Metric)
	assert.Equal(t, metrics.Tags{
		metrics.TagCheckKind: "specific",
		metrics.TagTestCase:  "home",
		metrics.TagCheck:     "status_200",
	}, obs[0].Tags)
	assert.Equal(t, 1.0, obs[0].Value)
}

func TestEvaluate_NoShortCircuit(t *testing.T) {
	sink := &testutil.RecordingSink{}
	calls := 0
	counting := func(passed bool) testcase.Predicate {
		return func(*transport.Response) bool {
			calls++
			return passed
		}
	}

	res := Evaluate(&transport.Response{Status: 500}, []testcase.CheckSpec{
		spec("a", counting(false)),
		spec("b", counting(true)),
		spec("c", counting(false)),
	}, Scope{Kind: Common, TestCase: "api"}, sink)

	assert.Equal(t, 3, calls)
	assert.False(t, res.Passed)
	assert.Equal(t, []string{"a", "c"}, res.Failed())
	assert.Len(t, sink.Observations(), 3)
}

func TestEvaluate_PanicIsolation(t *testing.T) {
	sink := &testutil.RecordingSink{}

	res := Evaluate(&transport.Response{Status: 200, Body: []byte("{}")}, []testcase.CheckSpec{
		spec("before", testcase.StatusIn(200)),
		spec("explodes", func(r *transport.Response) bool {
			var m map[string]int
			m["x"] = 1
			return true
		}),
		spec("after", testcase.BodyPresent()),
	}, Scope{Kind: Specific, TestCase: "home"}, sink)

	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].Passed)
	assert.False(t, res.Outcomes[1].Passed)
	assert.NotEmpty(t, res.Outcomes[1].Panic)
	assert.True(t, res.Outcomes[2].Passed)
	assert.False(t, res.Passed)

	obs := sink.Observations()
	require.Len(t, obs, 3)
	assert.Equal(t, 0.0, obs[1].Value)
	assert.Equal(t, "explodes", obs[1].Tags[metrics.TagCheck])
}

func TestEvaluate_TransportFailure(t *testing.T) {
	sink := &testutil.RecordingSink{}
	failed := &transport.Response{Status: 0}

	res := Evaluate(failed, []testcase.CheckSpec{
		spec("no_server_errors", testcase.StatusBelow(500)),
		spec("response_received", testcase.BodyPresent()),
		spec("json", testcase.JSONField("status")),
	}, Scope{Kind: Common, TestCase: "api"}, sink)

	assert.False(t, res.Passed)
	assert.Equal(t, []string{"no_server_errors", "response_received", "json"}, res.Failed())
}

func TestEvaluate_EmptyList(t *testing.T) {
	sink := &testutil.RecordingSink{}
	res := Evaluate(&transport.Response{}, nil, Scope{Kind: Specific, TestCase: "home"}, sink)
	assert.True(t, res.Passed)
	assert.Empty(t, sink.Observations())
}

func TestEvaluate_ScopeWithoutTestCase(t *testing.T) {
	sink := &testutil.RecordingSink{}
	Evaluate(&transport.Response{Status: 200}, []testcase.CheckSpec{spec("a", testcase.StatusIn(200))},
		Scope{Kind: Common}, sink)

	obs := sink.Observations()
	require.Len(t, obs, 1)
	_, ok := obs[0].Tags[metrics.TagTestCase]
	assert.False(t, ok)
}
