// Package model contains the resolution run models for the database.
package model

import (
	"errors"
	"strings"
	"time"

	"github.com/blacktop/dexsig/pkg/dex"
	"github.com/blacktop/dexsig/pkg/resolver"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("no run found")

// Run is one resolution pass over a class dump.
type Run struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Dump       string  `json:"dump"`
	Target     string  `json:"target,omitempty"`
	AppVersion string  `json:"app_version,omitempty"`
	Policy     string  `json:"policy"`
	Signatures int     `json:"signatures"`
	Classes    int     `json:"classes"`
	Matches    []Match `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"matches,omitempty"`
}

// Match is a resolved signature of a run.
type Match struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	RunID      string `gorm:"index;not null" json:"-"`
	Signature  string `gorm:"index" json:"signature"`
	Class      string `json:"class"`
	Method     string `json:"method"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Warnings   int    `json:"warnings"`
	// newline separated warning descriptions
	Details string `gorm:"type:text" json:"details,omitempty"`
}

// NewRun creates a run with a fresh ID.
func NewRun(dump, target, appVersion string, policy resolver.Policy) *Run {
	return &Run{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Dump:       dump,
		Target:     target,
		AppVersion: appVersion,
		Policy:     policy.String(),
	}
}

// AddResults appends a match per result.
func (r *Run) AddResults(results []*resolver.Result) {
	for _, res := range results {
		m := Match{
			RunID:      r.ID,
			Signature:  res.Signature.Name,
			Class:      res.Method.DefiningClass(),
			Method:     dex.MethodReference(res.Method),
			StartIndex: res.Scan.StartIndex,
			EndIndex:   res.Scan.EndIndex,
			Warnings:   len(res.Scan.Warnings),
		}
		if len(res.Scan.Warnings) > 0 {
			var details []string
			for _, w := range res.Scan.Warnings {
				details = append(details, w.String())
			}
			m.Details = strings.Join(details, "\n")
		}
		r.Matches = append(r.Matches, m)
	}
}

// ShortID returns the first block of the run ID.
func (r *Run) ShortID() string {
	id, _, _ := strings.Cut(r.ID, "-")
	return id
}
