package pushover

// Receipt is a request to poll the delivery state of an emergency message.
// The receipt travels in the URL path, so it contributes no form fields.
type Receipt struct {
	receipt string
}

func NewReceipt(receipt string) (*Receipt, error) {
	r := &Receipt{}
	if err := r.SetReceipt(receipt); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Receipt) entryPoint() string { return EntryPointReceipt }

func (r *Receipt) SetReceipt(receipt string) error {
	if err := validateToken("receipt", receipt); err != nil {
		return err
	}
	r.receipt = receipt
	return nil
}

func (r *Receipt) Receipt() string { return r.receipt }

func (r *Receipt) Fields() map[string]string {
	return map[string]string{}
}
