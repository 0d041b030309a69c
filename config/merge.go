package config

// mergeConfigs merges override configuration into base
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	if override.Store.Metrics != nil {
		result.Store.Metrics = override.Store.Metrics
	}
	if override.Store.Runner != "" {
		result.Store.Runner = override.Store.Runner
	}

	if override.Persistence.Backend != "" {
		result.Persistence.Backend = override.Persistence.Backend
	}
	if override.Persistence.Dir != "" {
		result.Persistence.Dir = override.Persistence.Dir
	}
	if override.Persistence.Format != "" {
		result.Persistence.Format = override.Persistence.Format
	}

	if override.Server.Addr != "" {
		result.Server.Addr = override.Server.Addr
	}
	if override.Server.ResumeGrace != "" {
		result.Server.ResumeGrace = override.Server.ResumeGrace
	}

	// Merge extensions
	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(result.Extensions)+len(override.Extensions))
		for key, value := range result.Extensions {
			merged[key] = value
		}
		for key, value := range override.Extensions {
			// Same key on both sides: merge one level deep
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					mergedMap := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						mergedMap[k] = v
					}
					for k, v := range overrideMap {
						mergedMap[k] = v
					}
					merged[key] = mergedMap
					continue
				}
			}
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}
