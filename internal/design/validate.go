package design

import "strings"

// FieldErrors maps a field name to its localized error message.
// An empty map means the form is valid.
type FieldErrors map[string]string

var requiredMessages = map[string]string{
	FieldName:  "Vui lòng nhập họ tên",
	FieldPhone: "Vui lòng nhập số điện thoại",
	FieldEmail: "Vui lòng nhập email",
	FieldImage: "Vui lòng chụp/tải lên ảnh không gian",
}

// Validate reports every missing required field. Only presence is checked.
func Validate(f FormData) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(f.Contact.Name) == "" {
		errs[FieldName] = requiredMessages[FieldName]
	}
	if strings.TrimSpace(f.Contact.Phone) == "" {
		errs[FieldPhone] = requiredMessages[FieldPhone]
	}
	if strings.TrimSpace(f.Contact.Email) == "" {
		errs[FieldEmail] = requiredMessages[FieldEmail]
	}
	if f.Image == nil || len(f.Image.Data) == 0 {
		errs[FieldImage] = requiredMessages[FieldImage]
	}
	return errs
}

func (e FieldErrors) Valid() bool { return len(e) == 0 }

// Without returns a copy of e with field removed. e is left untouched.
func (e FieldErrors) Without(field string) FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		if k != field {
			out[k] = v
		}
	}
	return out
}
