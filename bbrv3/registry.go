// Control-plane registration: a descriptor with a string identifier and
// four function pointers.

package bbrv3

// Descriptor is what a host registers with its congestion-control
// selection logic: an identifier plus the four entry points a path
// driver calls (init, notify, delete, observe).
type Descriptor struct {
	ID string

	Init    func(path Path)
	Notify  func(path Path, kind NotificationKind, sample Sample)
	Delete  func(path Path)
	Observe func() (StateCode, Bandwidth)
}

// NewDescriptor builds the "bbr" descriptor bound to cc.
func NewDescriptor(cc *CC) Descriptor {
	return Descriptor{
		ID:      "bbr",
		Init:    cc.Init,
		Notify:  cc.Notify,
		Delete:  cc.Delete,
		Observe: cc.Observe,
	}
}
