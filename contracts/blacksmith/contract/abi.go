// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package contract contains the ABI of the deployed BlacksmithNFT contract.
// Only the surface the forge service calls is listed, plus the standard
// ERC-721 Transfer event used to recover minted token ids from receipts.
package contract

// BlacksmithNFTABI is the ABI of the BlacksmithNFT contract.
const BlacksmithNFTABI = `[
	{
		"inputs": [
			{"internalType": "uint8",  "name": "_weaponType", "type": "uint8"},
			{"internalType": "uint8",  "name": "_tier",       "type": "uint8"},
			{"internalType": "string", "name": "_ipfsHash",   "type": "string"}
		],
		"name": "forgeWeapon",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "_player", "type": "address"}],
		"name": "getPlayer",
		"outputs": [
			{
				"components": [
					{"internalType": "uint16", "name": "level",         "type": "uint16"},
					{"internalType": "uint32", "name": "experience",    "type": "uint32"},
					{"internalType": "uint16", "name": "swordsCrafted", "type": "uint16"},
					{"internalType": "uint16", "name": "bowsCrafted",   "type": "uint16"},
					{"internalType": "uint16", "name": "axesCrafted",   "type": "uint16"},
					{"internalType": "bool",   "name": "isRegistered",  "type": "bool"}
				],
				"internalType": "struct BlacksmithNFT.Player",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "_player", "type": "address"}],
		"name": "getPlayerWeapons",
		"outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "_tokenId", "type": "uint256"}],
		"name": "getWeapon",
		"outputs": [
			{
				"components": [
					{"internalType": "uint8",   "name": "weaponType", "type": "uint8"},
					{"internalType": "uint8",   "name": "tier",       "type": "uint8"},
					{"internalType": "uint8",   "name": "rarity",     "type": "uint8"},
					{"internalType": "uint16",  "name": "damage",     "type": "uint16"},
					{"internalType": "uint16",  "name": "durability", "type": "uint16"},
					{"internalType": "uint16",  "name": "speed",      "type": "uint16"},
					{"internalType": "uint32",  "name": "craftedAt",  "type": "uint32"},
					{"internalType": "address", "name": "craftedBy",  "type": "address"},
					{"internalType": "string",  "name": "ipfsHash",   "type": "string"}
				],
				"internalType": "struct BlacksmithNFT.Weapon",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "_player", "type": "address"},
			{"internalType": "uint8",   "name": "_tier",   "type": "uint8"}
		],
		"name": "canCraftTier",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "_player", "type": "address"}],
		"name": "estimateForgeGas",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "MINTING_FEE",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "from",    "type": "address"},
			{"indexed": true, "internalType": "address", "name": "to",      "type": "address"},
			{"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	}
]`
