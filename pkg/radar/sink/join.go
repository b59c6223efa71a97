package sink

type numberSinks []NumberSink

func (s numberSinks) PublishNumber(v float64) {
	for _, sink := range s {
		sink.PublishNumber(v)
	}
}

type boolSinks []BoolSink

func (s boolSinks) PublishBool(v bool) {
	for _, sink := range s {
		sink.PublishBool(v)
	}
}

type textSinks []TextSink

func (s textSinks) PublishText(v string) {
	for _, sink := range s {
		sink.PublishText(v)
	}
}

func joinNumber(sinks ...NumberSink) NumberSink {
	var present numberSinks
	for _, s := range sinks {
		if s != nil {
			present = append(present, s)
		}
	}
	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	}
	return present
}

func joinBool(sinks ...BoolSink) BoolSink {
	var present boolSinks
	for _, s := range sinks {
		if s != nil {
			present = append(present, s)
		}
	}
	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	}
	return present
}

func joinText(sinks ...TextSink) TextSink {
	var present textSinks
	for _, s := range sinks {
		if s != nil {
			present = append(present, s)
		}
	}
	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	}
	return present
}

// Join fans out every measurement to all sets having a sink for it.
// A measurement absent from all sets stays absent.
func Join(sets ...*Set) *Set {
	out := &Set{}
	pick := func(fn func(*Set) NumberSink) NumberSink {
		var sinks []NumberSink
		for _, s := range sets {
			sinks = append(sinks, fn(s))
		}
		return joinNumber(sinks...)
	}
	out.BreathRate = pick(func(s *Set) NumberSink { return s.BreathRate })
	out.HeartRate = pick(func(s *Set) NumberSink { return s.HeartRate })
	out.Distance = pick(func(s *Set) NumberSink { return s.Distance })
	out.NumTargets = pick(func(s *Set) NumberSink { return s.NumTargets })
	out.TotalPhase = pick(func(s *Set) NumberSink { return s.TotalPhase })
	out.BreathPhase = pick(func(s *Set) NumberSink { return s.BreathPhase })
	out.HeartPhase = pick(func(s *Set) NumberSink { return s.HeartPhase })
	for i := range out.Targets {
		out.Targets[i].X = pick(func(s *Set) NumberSink { return s.Targets[i].X })
		out.Targets[i].Y = pick(func(s *Set) NumberSink { return s.Targets[i].Y })
	}

	var hasTarget []BoolSink
	var fwVersion, targetInfo []TextSink
	for _, s := range sets {
		hasTarget = append(hasTarget, s.HasTarget)
		fwVersion = append(fwVersion, s.FirmwareVersion)
		targetInfo = append(targetInfo, s.TargetInfo)
	}
	out.HasTarget = joinBool(hasTarget...)
	out.FirmwareVersion = joinText(fwVersion...)
	out.TargetInfo = joinText(targetInfo...)
	return out
}
