package pushover

// Validate is a request to check a user or group token and optionally one of its devices.
type Validate struct {
	recipient string
	device    *string
}

func NewValidate(recipient string) (*Validate, error) {
	v := &Validate{}
	if err := v.SetRecipient(recipient); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Validate) entryPoint() string { return EntryPointValidate }

func (v *Validate) SetRecipient(recipient string) error {
	if err := validateToken("recipient token", recipient); err != nil {
		return err
	}
	v.recipient = recipient
	return nil
}

func (v *Validate) SetDevice(device string) error {
	if err := validateDevice(device); err != nil {
		return err
	}
	v.device = &device
	return nil
}

func (v *Validate) Fields() map[string]string {
	fields := map[string]string{
		FieldRecipient: v.recipient,
	}
	if v.device != nil {
		fields[FieldDevice] = *v.device
	}
	return fields
}
