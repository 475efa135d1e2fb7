// Package common provides the data structures shared by the rpc server, the
// rpc client and the transports.
//
// Key Components:
//
//   - Message: the single structure used for every request and response.
//     Which fields are set depends on the MessageType. Factory functions
//     exist for every request and response.
//
//   - ErrCode: classifies the error carried by a response. The client turns
//     it back into a RemoteError that unwraps to the original sentinel, so
//     errors.Is keeps working across the network.
//
//   - Service IDs: a node serves the coordinator, replica, gateway and id
//     services behind a single endpoint. The service id routes a request.
//
//   - ServerConfig / ClientConfig: node and client configuration.
//
//   - Logger: custom formatting for the dragonboat logger factory used by
//     every package of the module.
package common
