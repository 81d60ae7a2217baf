// Package stub implements the stub side of a usbip-exported device: the
// state the stub keeps about the real device it forwards to a remote host.
//
// A [Device] tracks the active configuration through the registry in
// [github.com/yifeimfd/usbip-win/stub/devconf]. Configuration events from
// the transport map onto registry operations:
//
//   - [Device.SelectConfiguration] builds a new registry, replacing any
//     previous one
//   - [Device.SelectInterface] swaps one interface's alternate setting
//   - [Device.Deconfigure] tears the registry down
//
// I/O dispatch resolves endpoint addresses with [Device.Pipe]. The Device
// holds a read/write lock so configuration changes never race lookups;
// lookups return copies, while [Device.View] exposes borrowed pointers for
// the duration of a callback.
package stub
