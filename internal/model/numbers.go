package model

import (
	"encoding/json"
	"fmt"

	"lottoinsight/internal/lottery"

	"gorm.io/datatypes"
)

// encodeInts stores an int slice as a JSON array column; nil is stored as [].
func encodeInts(nums []int) (datatypes.JSON, error) {
	if nums == nil {
		nums = []int{}
	}
	b, err := json.Marshal(nums)
	if err != nil {
		return nil, fmt.Errorf("encode numbers: %w", err)
	}
	return datatypes.JSON(b), nil
}

// encodeSet encodes both halves of a number set.
func encodeSet(set lottery.NumberSet) (primary, secondary datatypes.JSON, err error) {
	if primary, err = encodeInts(set.Primary); err != nil {
		return nil, nil, err
	}
	if secondary, err = encodeInts(set.Secondary); err != nil {
		return nil, nil, err
	}
	return primary, secondary, nil
}

// decodeInts reads a JSON array column; empty or malformed columns read as nil.
func decodeInts(col datatypes.JSON) []int {
	if len(col) == 0 {
		return nil
	}
	var nums []int
	if err := json.Unmarshal(col, &nums); err != nil {
		return nil
	}
	if len(nums) == 0 {
		return nil
	}
	return nums
}
