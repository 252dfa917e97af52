package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRejected(t *testing.T) {
	t.Parallel()

	f := NewFilter([]string{"badword", "Суслик"})

	require.True(t, f.Rejected("you are a badword"))
	require.True(t, f.Rejected("BADWORD!"))
	require.True(t, f.Rejected("ну ты и суслик"))
	require.False(t, f.Rejected("I need help"))
	require.False(t, f.Rejected(""))
}

func TestNewFilterDropsEmptyAndDuplicates(t *testing.T) {
	t.Parallel()

	f := NewFilter([]string{" ", "", "Dup", "dup", "DUP"})
	require.Len(t, f.terms, 1)
	require.True(t, f.Rejected("dup"))
}

func TestDefaultTermsReject(t *testing.T) {
	t.Parallel()

	f := NewFilter(DefaultTerms)
	require.True(t, f.Rejected("ты идиот"))
	require.False(t, f.Rejected("мне нужна помощь"))
}
