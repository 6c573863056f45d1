package interp

import (
	"fmt"
	"io"
)

// Socket-backed pseudo-objects. The backing handle is host-owned and never
// serialized: the encoder replaces references to Server and Connection
// objects with null, and after a restore any surviving handle has a nil
// backing until the host reconnects it.

// NewServerObject wraps a host listener in a Server-class pseudo-object.
func (i *Interpreter) NewServerObject(backing interface{}, addr string) *Object {
	o := NewTagged(i.protos.Server, ClassServer)
	o.SetData(&SocketData{Backing: backing})
	o.Set("address", String(addr))
	return o
}

// NewConnectionObject wraps a host connection in a Connection-class
// pseudo-object. The id keys the blocker used by Connection.prototype.wait.
func (i *Interpreter) NewConnectionObject(backing interface{}, id int64, remote string) *Object {
	o := NewTagged(i.protos.Connection, ClassConnection)
	o.SetData(&SocketData{Backing: backing})
	o.Set("id", Number(id))
	o.Set("remote", String(remote))
	return o
}

// ConnBlocker returns the blocker key threads use to wait on a connection.
func ConnBlocker(id int64) string {
	return fmt.Sprintf("conn:%d", id)
}

// registerSocketPrimitives installs Connection.prototype methods.
func (i *Interpreter) registerSocketPrimitives() {
	proto := i.protos.Connection

	i.method(proto, "write", "Connection.prototype.write", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		sd, err := thisSocket(this)
		if err != nil {
			return nil, err
		}
		w, ok := sd.Backing.(io.Writer)
		if !ok {
			return nil, NewTypeError("connection is not open")
		}
		if _, werr := io.WriteString(w, argString(args, 0)); werr != nil {
			return Boolean(false), nil
		}
		return Boolean(true), nil
	})

	i.method(proto, "close", "Connection.prototype.close", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		sd, err := thisSocket(this)
		if err != nil {
			return nil, err
		}
		if c, ok := sd.Backing.(io.Closer); ok {
			c.Close()
		}
		sd.Backing = nil
		return Undefined{}, nil
	})

	// wait parks the calling thread until the host reports the connection
	// closed.
	i.method(proto, "wait", "Connection.prototype.wait", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := this.(*Object)
		if !ok || o.Class() != ClassConnection {
			return nil, NewTypeError("receiver is not a Connection")
		}
		idV, _ := o.Get("id")
		t.Block(ConnBlocker(int64(ToNumber(idV))))
		return Undefined{}, nil
	})

	i.method(proto, "isOpen", "Connection.prototype.isOpen", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		sd, err := thisSocket(this)
		if err != nil {
			return nil, err
		}
		return Boolean(sd.Backing != nil), nil
	})
}

func thisSocket(this Value) (*SocketData, *UserError) {
	o, ok := this.(*Object)
	if !ok || (o.Class() != ClassConnection && o.Class() != ClassServer) {
		return nil, NewTypeError("receiver is not a connection")
	}
	sd, _ := o.Data().(*SocketData)
	if sd == nil {
		sd = &SocketData{}
		o.SetData(sd)
	}
	return sd, nil
}
