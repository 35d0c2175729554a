package paymentsrepo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeLikePrefix(t *testing.T) {
	// Underscores in the Mellat authority prefix must match literally, not
	// as single-character wildcards: a callback for order 1742567405 must
	// never select the row for order 1742567405000.
	require.Equal(t, `mellat\_1742567405\_`, escapeLikePrefix("mellat_1742567405_"))
	require.Equal(t, `mellat\_1742567405000\_`, escapeLikePrefix("mellat_1742567405000_"))
}

func TestEscapeLikePrefixAllMetacharacters(t *testing.T) {
	require.Equal(t, `\%\_\\`, escapeLikePrefix(`%_\`))
	require.Equal(t, "A00000123", escapeLikePrefix("A00000123"))
}
