package movswap

import (
	"crypto/ed25519"
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("ANcN516AgvKLduLsCRmqts1yEiFkf2dKaEXSFBKhyyBt")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SPL_TOKEN_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))
)

// SwapRatio is the number of token units paid out per lamport swapped.
const SwapRatio = 10
