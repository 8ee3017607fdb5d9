package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
)

func ptrI64(v int64) *int64 { return &v }
func ptrStr(v string) *string { return &v }

func TestFromColumns(t *testing.T) {
	tests := []struct {
		name         string
		groupID      *int64
		spec         *string
		consumableID *int64
		want         Criterion
		wantErr      bool
	}{
		{name: "group", groupID: ptrI64(7), want: Group{GroupID: 7}},
		{name: "technical", spec: ptrStr("15W40"), want: Technical{Spec: "15W40"}},
		{name: "individual", consumableID: ptrI64(42), want: Individual{ConsumableID: 42}},
		{name: "none populated", wantErr: true},
		{name: "two populated", groupID: ptrI64(7), spec: ptrStr("15W40"), wantErr: true},
		{name: "all populated", groupID: ptrI64(7), spec: ptrStr("15W40"), consumableID: ptrI64(42), wantErr: true},
		{name: "empty spec", spec: ptrStr(""), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromColumns(tt.groupID, tt.spec, tt.consumableID)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errs.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		crit    Criterion
		wantErr bool
	}{
		{name: "group", crit: Group{GroupID: 7}},
		{name: "technical", crit: Technical{Spec: "15W40"}},
		{name: "individual", crit: Individual{ConsumableID: 42}},
		{name: "group without id", crit: Group{}, wantErr: true},
		{name: "technical with empty spec", crit: Technical{}, wantErr: true},
		{name: "individual without consumable", crit: Individual{}, wantErr: true},
		{name: "nil", crit: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.crit)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestColumnsRoundTrip(t *testing.T) {
	for _, crit := range []Criterion{Group{GroupID: 3}, Technical{Spec: "295/80R22.5"}, Individual{ConsumableID: 9}} {
		g, s, c := Columns(crit)
		back, err := FromColumns(g, s, c)
		require.NoError(t, err)
		assert.Equal(t, crit, back)
	}
}

func TestMatches(t *testing.T) {
	gid := int64(5)
	base := Consumable{
		ID:       10,
		Name:     "Filtro X12",
		Category: "filtro_aceite",
		Type:     TypeSerialized,
		GroupID:  &gid,
		TechSpec: "X12",
		Active:   true,
	}

	tests := []struct {
		name     string
		mutate   func(c *Consumable)
		crit     Criterion
		category string
		want     bool
	}{
		{name: "group match", crit: Group{GroupID: 5}, category: "filtro_aceite", want: true},
		{name: "group mismatch", crit: Group{GroupID: 6}, category: "filtro_aceite", want: false},
		{name: "group on ungrouped consumable", mutate: func(c *Consumable) { c.GroupID = nil }, crit: Group{GroupID: 5}, category: "filtro_aceite", want: false},
		{name: "technical match", crit: Technical{Spec: "X12"}, category: "filtro_aceite", want: true},
		{name: "technical mismatch", crit: Technical{Spec: "X13"}, category: "filtro_aceite", want: false},
		{name: "technical against empty spec", mutate: func(c *Consumable) { c.TechSpec = "" }, crit: Technical{Spec: ""}, category: "filtro_aceite", want: false},
		{name: "individual match", crit: Individual{ConsumableID: 10}, category: "filtro_aceite", want: true},
		{name: "individual mismatch", crit: Individual{ConsumableID: 11}, category: "filtro_aceite", want: false},
		{name: "wrong category", crit: Individual{ConsumableID: 10}, category: "correa", want: false},
		{name: "inactive never matches", mutate: func(c *Consumable) { c.Active = false }, crit: Individual{ConsumableID: 10}, category: "filtro_aceite", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			assert.Equal(t, tt.want, Matches(c, tt.crit, tt.category))
		})
	}
}
