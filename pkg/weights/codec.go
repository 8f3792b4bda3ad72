package weights

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

func Marshal(t Tree) ([]byte, error) {
	data, err := cbor.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode weight tree: %w", err)
	}

	return data, nil
}

func Unmarshal(data []byte) (Tree, error) {
	var t Tree
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode weight tree: %w", err)
	}

	return t, nil
}
