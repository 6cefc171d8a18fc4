package kcore

import "time"

// Hook is the empty marker interface every hook type embeds, mirroring
// franz-go's cfg.hooks.each(func(h Hook) { if h, ok := h.(BrokerConnectHook); ok { ... } })
// dispatch pattern in broker.go. A caller implements whichever of the
// interfaces below it cares about; unimplemented ones are silently
// skipped during dispatch.
type Hook interface{}

// BrokerConnectHook is called after every dial attempt to a broker,
// successful or not.
type BrokerConnectHook interface {
	OnConnect(addr string, dialDuration time.Duration, err error)
}

// BrokerDisconnectHook is called whenever a broker's connection is
// torn down, whether by explicit close or by failure.
type BrokerDisconnectHook interface {
	OnDisconnect(addr string)
}

func runHooks(hooks []Hook, fn func(Hook)) {
	for _, h := range hooks {
		fn(h)
	}
}
