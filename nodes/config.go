/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nodes

import "fmt"

// configFloat and configInt pull a numeric field out of a node's
// free-form config document. jsoniter decodes every JSON number into a
// float64 when the target is map[string]any, so both helpers start
// there regardless of the field's logical type.
func configFloat(cfg map[string]any, key string, def float64) (float64, error) {
	v, ok := cfg[key]
	if !ok {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("config %q: expected a number, got %T", key, v)
	}
	return f, nil
}

func configInt(cfg map[string]any, key string, def int) (int, error) {
	f, err := configFloat(cfg, key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
