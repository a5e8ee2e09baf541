// Package engine wires components A through H into the control flow for
// one change application (spec §2): open the store read-only, pre-scan
// relations, run the diff pass, emit the augmented diff, reopen the
// store read-write, run the write pass, and commit or abort. It mirrors
// main.cpp's three-phase open/scan/commit structure.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/osmaug/pkg/apply"
	"github.com/cuemby/osmaug/pkg/buffer"
	"github.com/cuemby/osmaug/pkg/diff"
	"github.com/cuemby/osmaug/pkg/osc"
	"github.com/cuemby/osmaug/pkg/store"
)

// ErrNonMonotonicSequence is returned by Run when SeqNumber does not
// strictly exceed the database's stored sequence number (spec §3
// invariant 6, resolved per the Open Question in §9: "An engineer
// porting this design should add a precondition").
var ErrNonMonotonicSequence = errors.New("engine: sequence number is not strictly greater than the stored one")

// Request describes one change application.
type Request struct {
	DatabasePath string
	ChangeFile   string
	SeqNumber    string
	Timestamp    string // RFC3339, the incoming change's validity instant
	Commit       bool
	OutputDir    string // directory for SEQ_NUMBER.adiff.xml; defaults to "."
}

// Result reports what a Run did, for the CLI's progress/summary output.
type Result struct {
	PreviousSeqNumber string
	DiffPath          string
	Apply             apply.Handler
	Committed         bool
}

// Run executes one full change application against req.
func Run(req Request) (*Result, error) {
	diffPath, err := diffOutputPath(req)
	if err != nil {
		return nil, err
	}

	doc, err := parseChangeFile(req.ChangeFile)
	if err != nil {
		return nil, err
	}

	roEnv, err := store.Open(req.DatabasePath, false)
	if err != nil {
		return nil, fmt.Errorf("engine: open database read-only: %w", err)
	}

	roTxn, err := roEnv.Begin(false)
	if err != nil {
		roEnv.Close() //nolint:errcheck
		return nil, fmt.Errorf("engine: begin read-only transaction: %w", err)
	}

	prevSeq, _ := roTxn.Metadata().Get(store.MetaSequenceNumber)

	resolver := diff.NewRelationResolver()
	if err := doc.Scan(resolver); err != nil {
		roTxn.Abort() //nolint:errcheck
		roEnv.Close()  //nolint:errcheck
		return nil, fmt.Errorf("engine: pre-scan relations: %w", err)
	}

	arena := buffer.New(1024)
	diffHandler := diff.New(roTxn, arena)
	if err := doc.Scan(osc.SinkFuncs{Node: diffHandler.OnNode, Way: diffHandler.OnWay}); err != nil {
		roTxn.Abort() //nolint:errcheck
		roEnv.Close()  //nolint:errcheck
		return nil, fmt.Errorf("engine: diff pass: %w", err)
	}
	resolver.Flush(diffHandler)

	validAt, err := parseTimestamp(req.Timestamp)
	if err != nil {
		roTxn.Abort() //nolint:errcheck
		roEnv.Close()  //nolint:errcheck
		return nil, err
	}

	if err := diff.NewEmitter(diffHandler).WriteTo(diffPath, validAt); err != nil {
		roTxn.Abort() //nolint:errcheck
		roEnv.Close()  //nolint:errcheck
		return nil, fmt.Errorf("engine: emit diff: %w", err)
	}

	if err := roTxn.Abort(); err != nil {
		roEnv.Close() //nolint:errcheck
		return nil, fmt.Errorf("engine: release read-only transaction: %w", err)
	}
	if err := roEnv.Close(); err != nil {
		return nil, fmt.Errorf("engine: close read-only environment: %w", err)
	}

	rwEnv, err := store.Open(req.DatabasePath, true)
	if err != nil {
		return nil, fmt.Errorf("engine: open database read-write: %w", err)
	}
	defer rwEnv.Close() //nolint:errcheck

	wTxn, err := rwEnv.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("engine: begin write transaction: %w", err)
	}

	applyHandler := apply.New(wTxn)
	if err := doc.Scan(applyHandler); err != nil {
		wTxn.Abort() //nolint:errcheck
		return nil, fmt.Errorf("engine: write pass: %w", err)
	}

	committed := false
	if req.Commit {
		if prevSeq != "" && !seqGreater(req.SeqNumber, prevSeq) {
			wTxn.Abort() //nolint:errcheck
			return nil, ErrNonMonotonicSequence
		}
		meta := wTxn.Metadata()
		if err := meta.Put(store.MetaSequenceNumber, req.SeqNumber); err != nil {
			wTxn.Abort() //nolint:errcheck
			return nil, fmt.Errorf("engine: write sequence number: %w", err)
		}
		if err := meta.Put(store.MetaTimestamp, req.Timestamp); err != nil {
			wTxn.Abort() //nolint:errcheck
			return nil, fmt.Errorf("engine: write timestamp: %w", err)
		}
		if err := wTxn.Commit(); err != nil {
			return nil, fmt.Errorf("engine: commit: %w", err)
		}
		committed = true
	} else {
		if err := wTxn.Abort(); err != nil {
			return nil, fmt.Errorf("engine: abort dry-run transaction: %w", err)
		}
	}

	return &Result{
		PreviousSeqNumber: prevSeq,
		DiffPath:          diffPath,
		Apply:             *applyHandler,
		Committed:         committed,
	}, nil
}

func diffOutputPath(req Request) (string, error) {
	if req.SeqNumber == "" {
		return "", errors.New("engine: sequence number is required")
	}
	dir := req.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, req.SeqNumber+".adiff.xml"), nil
}

func parseChangeFile(path string) (*osc.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: open change file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	doc, err := osc.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return doc, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("engine: invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// seqGreater reports whether a is strictly greater than b when both
// parse as base-10 integers (osmosis sequence numbers always do); if
// either does not parse, it falls back to a plain string comparison
// instead of panicking, so a malformed value can still compare greater.
func seqGreater(a, b string) bool {
	an, aok := parseUint(a)
	bn, bok := parseUint(b)
	if aok && bok {
		return an > bn
	}
	return a > b
}

func parseUint(s string) (uint64, bool) {
	var n uint64
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + uint64(r-'0')
	}
	return n, true
}
