package session

import "sudooom.impostor/internal/store"

// 存储路径布局，与其他客户端共享，不可更改

const roomsRoot = "rooms"

func RoomPath(code string) string {
	return store.JoinPath(roomsRoot, code)
}

func PlayersPath(code string) string {
	return store.JoinPath(roomsRoot, code, "players")
}

func PlayerPath(code, playerID string) string {
	return store.JoinPath(roomsRoot, code, "players", playerID)
}

func GameStatePath(code string) string {
	return store.JoinPath(roomsRoot, code, "gameState")
}

func AssignmentPath(code, playerID string) string {
	return store.JoinPath(roomsRoot, code, "gameState", "assignments", playerID)
}

func VotePath(code, voterID string) string {
	return store.JoinPath(roomsRoot, code, "gameState", "votes", voterID)
}
