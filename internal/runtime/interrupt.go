package runtime

import "sync/atomic"

func loadInterrupt(p *int32) bool { return atomic.LoadInt32(p) != 0 }
