package inheritchain

func (s *InheritChain) runJobs() {
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.refreshPendingRegistries)

	s.scheduler.StartAsync()
}

// refreshPendingRegistries sweeps every address that still has pending
// fan-out targets and reconciles them against the target inheritances, so a
// heir's registry converges even when they never trigger the pull themselves.
func (s *InheritChain) refreshPendingRegistries() {
	callers := s.ledger.RegistryHeirs()
	if len(callers) == 0 {
		return
	}
	if _, err := s.reconciler.UpdatePendingInheritances(callers, s.config.SurfacedRejectedCount()); err != nil {
		log.Warn("refresh pending registries", "callers", len(callers), "err", err)
	}
}
