package brokererr

import "github.com/nimbuskv/broker/pkg/data"

// ToData implements spec §7's error↔data round-trip:
// vector ["error", enum_value(kind_name), context], where context is
// nil, [description], or [endpoint_info, description].
func (e *Error) ToData() data.Value {
	if e == nil {
		e = New(KindNone)
	}

	var ctx data.Value
	switch {
	case e.Context == nil:
		ctx = data.None()
	case e.Context.Endpoint == "":
		ctx = data.NewVector(data.String(e.Context.Description))
	default:
		ctx = data.NewVector(data.String(e.Context.Endpoint), data.String(e.Context.Description))
	}

	return data.NewVector(
		data.String("error"),
		data.Enum(string(e.Kind)),
		ctx,
	)
}

// FromData reverses ToData. It is faithful: FromData(ToData(e)) == e.
func FromData(v data.Value) (*Error, error) {
	if v.Kind() != data.KindVector || len(v.Vector()) != 3 {
		return nil, Newf(KindInvalidData, "malformed error vector")
	}
	vec := v.Vector()
	if vec[0].Kind() != data.KindString || vec[0].Str() != "error" {
		return nil, Newf(KindInvalidData, "not an error vector")
	}
	if vec[1].Kind() != data.KindEnum {
		return nil, Newf(KindInvalidData, "error kind is not an enum value")
	}
	kind := Kind(vec[1].EnumTag())

	out := &Error{Kind: kind, Category: kind.Category()}

	ctx := vec[2]
	switch ctx.Kind() {
	case data.KindNone:
		// no context
	case data.KindVector:
		switch len(ctx.Vector()) {
		case 1:
			out.Context = &Context{Description: ctx.Vector()[0].Str()}
		case 2:
			out.Context = &Context{
				Endpoint:    ctx.Vector()[0].Str(),
				Description: ctx.Vector()[1].Str(),
			}
		default:
			return nil, Newf(KindInvalidData, "error context vector has wrong arity")
		}
	default:
		return nil, Newf(KindInvalidData, "error context has unexpected kind")
	}

	return out, nil
}
