package amyrose

// Typed patches replace open-ended attribute bags on update. A nil pointer
// means the field was not provided; a pointer to an empty string fails the
// emptiness check; a pointer to false is a legitimate boolean value.

// AccountPatch updates a subset of account fields.
type AccountPatch struct {
	Email        *string
	Phone        *string
	Username     *string
	PasswordHash *string
	Verified     *bool
	Disabled     *bool
}

func (p AccountPatch) Validate() error {
	fields := []fieldValue{}
	if p.Email != nil {
		fields = append(fields, fieldValue{"email", *p.Email})
	}
	if p.Phone != nil {
		fields = append(fields, fieldValue{"phone", *p.Phone})
	}
	if p.Username != nil {
		fields = append(fields, fieldValue{"username", *p.Username})
	}
	if p.PasswordHash != nil {
		fields = append(fields, fieldValue{"password", *p.PasswordHash})
	}
	return checkEmpty(fields...)
}

func (p AccountPatch) Apply(a *Account) []string {
	columns := []string{}
	if p.Email != nil {
		a.Email = *p.Email
		columns = append(columns, "email")
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
		columns = append(columns, "phone_number")
	}
	if p.Username != nil {
		a.Username = *p.Username
		columns = append(columns, "username")
	}
	if p.PasswordHash != nil {
		a.PasswordHash = *p.PasswordHash
		columns = append(columns, "password_hash")
	}
	if p.Verified != nil {
		a.Verified = *p.Verified
		columns = append(columns, "verified")
	}
	if p.Disabled != nil {
		a.Disabled = *p.Disabled
		columns = append(columns, "disabled")
	}
	return columns
}

// SessionPatch updates the mutable fields shared by all session kinds.
type SessionPatch[T SessionRecord] struct {
	IP    *string
	Valid *bool
}

func (p SessionPatch[T]) Validate() error {
	if p.IP != nil {
		return checkEmpty(fieldValue{"ip", *p.IP})
	}
	return nil
}

func (p SessionPatch[T]) Apply(record T) []string {
	columns := []string{}
	if p.IP != nil {
		setSessionIP(record, *p.IP)
		columns = append(columns, "ip")
	}
	if p.Valid != nil {
		setSessionValid(record, *p.Valid)
		columns = append(columns, "valid")
	}
	return columns
}

func setSessionIP(record SessionRecord, ip string) {
	switch s := record.(type) {
	case *AuthenticationSession:
		s.IP = ip
	case *VerificationSession:
		s.IP = ip
	case *CaptchaSession:
		s.IP = ip
	}
}

func setSessionValid(record SessionRecord, valid bool) {
	switch s := record.(type) {
	case *AuthenticationSession:
		s.Valid = valid
	case *VerificationSession:
		s.Valid = valid
	case *CaptchaSession:
		s.Valid = valid
	}
}

// GrantPatch updates a role or permission name.
type GrantPatch[T Entity] struct {
	Name *string
}

func (p GrantPatch[T]) Validate() error {
	if p.Name != nil {
		return checkEmpty(fieldValue{"name", *p.Name})
	}
	return nil
}

func (p GrantPatch[T]) Apply(record T) []string {
	if p.Name == nil {
		return nil
	}
	switch g := any(record).(type) {
	case *Role:
		g.Name = *p.Name
	case *Permission:
		g.Name = *p.Name
	default:
		return nil
	}
	return []string{"name"}
}
