/*
Package appchain facilitates interaction with a CITA / AppChain node over
JSON-RPC, with the intention of deploying contracts, publishing their ABI
on-chain and waiting on transaction receipts.

It implements only the parts of the node RPC surface and transaction format
that contract deployment needs, rather than a complete SDK.
*/

package appchain
