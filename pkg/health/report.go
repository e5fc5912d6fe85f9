package health

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-faster/jx"
)

type failure struct {
	name string
	msg  string
}

func failures(probes []*probe) []failure {
	var out []failure
	for _, p := range probes {
		if p.healthy.Load() {
			continue
		}
		msg := "check is unhealthy"
		if err := p.err(); err != nil {
			msg = err.Error()
		}
		out = append(out, failure{name: p.name, msg: msg})
	}
	return out
}

// writeReport renders {"status":"ok"} or
// {"status":"unhealthy","checks":{name:error}} with checks in name order.
func writeReport(w http.ResponseWriter, fs []failure) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	status := http.StatusOK
	e.ObjStart()
	e.FieldStart("status")
	if len(fs) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")

		slices.SortFunc(fs, func(a, b failure) int { return strings.Compare(a.name, b.name) })
		e.FieldStart("checks")
		e.ObjStart()
		for _, f := range fs {
			e.FieldStart(f.name)
			e.Str(f.msg)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
