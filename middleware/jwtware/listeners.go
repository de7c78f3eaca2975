package jwtware

// RegisterValidationListeners appends listeners to cfg, skipping nil ones.
func RegisterValidationListeners(cfg *Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	for _, l := range listeners {
		if l != nil {
			cfg.ValidationListeners = append(cfg.ValidationListeners, l)
		}
	}
}
