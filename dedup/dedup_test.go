package dedup

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chapter(code, url, jobID string) Fields {
	return Fields{"code": code, "chapter_url": url, "job_id": jobID}
}

func TestResolve_ChapterLatestJobWins(t *testing.T) {
	records := []Fields{
		chapter("m1", "/c1", "20240101000000"),
		chapter("m1", "/c1", "20240102000000"),
	}

	got := Resolve(records, Latest("code", "chapter_url"))

	require.Len(t, got, 1)
	assert.Equal(t, "20240102000000", got[0]["job_id"])
}

func TestResolve_GreaterOrderWinsRegardlessOfInputOrder(t *testing.T) {
	base := []Fields{
		chapter("m1", "/c1", "20240101000000"),
		chapter("m1", "/c1", "20240103000000"),
		chapter("m1", "/c1", "20240102000000"),
		chapter("m2", "/c1", "20240101000000"),
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Fields(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Resolve(shuffled, Latest("code", "chapter_url"))
		require.Len(t, got, 2)
		for _, r := range got {
			if r["code"] == "m1" {
				assert.Equal(t, "20240103000000", r["job_id"], "input %v", shuffled)
			}
		}
	}
}

func TestResolve_Ascending(t *testing.T) {
	records := []Fields{
		{"name": "A", "job_id": "3"},
		{"name": "A", "job_id": "1"},
		{"name": "A", "job_id": "2"},
	}
	got := Resolve(records, Options{Keys: []string{"name"}, OrderBy: "job_id"})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0]["job_id"])
}

func TestResolve_TiesKeepFirstSeen(t *testing.T) {
	records := []Fields{
		{"code": "x1", "job_id": "20240101000000", "title": "first"},
		{"code": "x1", "job_id": "20240101000000", "title": "second"},
	}

	for _, desc := range []bool{true, false} {
		t.Run(fmt.Sprintf("descending=%t", desc), func(t *testing.T) {
			got := Resolve(records, Options{Keys: []string{"code"}, Descending: desc})
			require.Len(t, got, 1)
			assert.Equal(t, "first", got[0]["title"])
		})
	}
}

func TestResolve_MissingOrderUsesSentinel(t *testing.T) {
	records := []Fields{
		{"code": "x1", "title": "no job"},
		{"code": "x1", "job_id": "20240101000000", "title": "with job"},
	}

	// digits sort after "-", so a real job id beats a missing one
	got := Resolve(records, Latest("code"))
	require.Len(t, got, 1)
	assert.Equal(t, "with job", got[0]["title"])

	got = Resolve(records, Options{Keys: []string{"code"}, OrderBy: "job_id"})
	require.Len(t, got, 1)
	assert.Equal(t, "no job", got[0]["title"])
}

func TestResolve_MissingKeyFieldsAreNotMerged(t *testing.T) {
	records := []Fields{
		{"chapter_url": "/c1", "job_id": "1"},
		{"chapter_url": "/c1", "job_id": "2"},
		chapter("m1", "/c1", "1"),
	}

	rep := ResolveReport(records, Latest("code", "chapter_url"))

	assert.Len(t, rep.Records, 3, "records lacking code must not collapse onto each other")
	assert.Equal(t, 2, rep.Unkeyed)
	assert.Equal(t, 0, rep.Dropped())
}

func TestResolve_EmptyValueIsAKey(t *testing.T) {
	records := []Fields{
		{"code": "", "job_id": "1"},
		{"code": "", "job_id": "2"},
	}
	rep := ResolveReport(records, Latest("code"))
	require.Len(t, rep.Records, 1)
	assert.Equal(t, "2", rep.Records[0]["job_id"])
	assert.Zero(t, rep.Unkeyed)
}

func TestResolve_KeyPartsDoNotCollide(t *testing.T) {
	records := []Fields{
		{"a": "x;y", "b": "z", "job_id": "1"},
		{"a": "x", "b": "y;z", "job_id": "2"},
	}
	got := Resolve(records, Latest("a", "b"))
	assert.Len(t, got, 2)
}

func TestResolve_OrderOfFirstAppearance(t *testing.T) {
	records := []Fields{
		{"name": "B", "job_id": "1"},
		{"name": "A", "job_id": "1"},
		{"name": "B", "job_id": "2"},
		{"name": "C", "job_id": "1"},
	}
	got := Resolve(records, Latest("name"))
	require.Len(t, got, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{got[0]["name"], got[1]["name"], got[2]["name"]})
	assert.Equal(t, "2", got[0]["job_id"])
}

func TestResolve_Idempotent(t *testing.T) {
	records := []Fields{
		chapter("m1", "/c1", "20240101000000"),
		chapter("m1", "/c2", "20240101000000"),
		chapter("m1", "/c1", "20240102000000"),
		{"chapter_url": "/orphan", "job_id": "20240101000000"},
		chapter("m2", "/c1", "20240105000000"),
		chapter("m2", "/c1", "20240104000000"),
	}
	opts := Latest("code", "chapter_url")

	once := Resolve(records, opts)
	twice := Resolve(once, opts)
	assert.Equal(t, once, twice)
}

func TestResolve_EdgeInputs(t *testing.T) {
	assert.Empty(t, Resolve([]Fields(nil), Latest("code")))

	records := []Fields{{"code": "a"}, {"code": "a"}}
	got := Resolve(records, Options{})
	assert.Equal(t, records, got, "no keys means every record is distinct")

	got[0]["code"] = "changed"
	assert.Equal(t, "changed", records[0]["code"], "records are returned, not copied")
}

func TestReport_Counts(t *testing.T) {
	records := []Fields{
		{"name": "A", "job_id": "1"},
		{"name": "A", "job_id": "2"},
		{"job_id": "3"},
	}
	rep := ResolveReport(records, Latest("name"))
	assert.Equal(t, 3, rep.Input)
	assert.Len(t, rep.Records, 2)
	assert.Equal(t, 1, rep.Unkeyed)
	assert.Equal(t, 1, rep.Dropped())
}
