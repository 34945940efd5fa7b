package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchFailure(t *testing.T) {
	f := BatchFailure{Batch: 2, Batches: 5, From: 20, To: 40, Err: errors.New("boom")}

	assert.Equal(t, 20, f.Size())
	assert.Equal(t, "batch 2/5 (chunks 20-39): boom", f.String())
}

func TestRunReport_Totals(t *testing.T) {
	r := &RunReport{
		Sources: []SourceReport{
			{Source: "NASM", Stored: 40, Skipped: 20},
			{Source: "ACE", Stored: 12},
			{Source: "NFPT", Missing: true},
		},
	}

	assert.Equal(t, 52, r.Stored())
	assert.Equal(t, 20, r.Skipped())
}

func TestSourceReport_Unprocessed(t *testing.T) {
	assert.False(t, SourceReport{Source: "NASM", Stored: 3}.Unprocessed())
	assert.True(t, SourceReport{Source: "ACE", Missing: true}.Unprocessed())
	assert.True(t, SourceReport{Source: "NFPT", Failed: true}.Unprocessed())
}
